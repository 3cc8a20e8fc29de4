package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/adapter"
	"mpesa-subscription-shop/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Locker is an optional cross-process mutual exclusion scope, keyed by
// payment reference. The engine always serializes per-reference in-process;
// a Locker extends that guarantee across replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Meter receives business events for the monitoring backend. A nil Meter
// disables recording.
type Meter interface {
	PaymentStatus(status string)
	Revenue(currency string, amount int64)
	Fulfillment(intent string)
	Shortage(planID string)
}

type noopMeter struct{}

func (noopMeter) PaymentStatus(string)  {}
func (noopMeter) Revenue(string, int64) {}
func (noopMeter) Fulfillment(string)    {}
func (noopMeter) Shortage(string)       {}

// ChargeRequest is a user's intent to pay, prior to provider confirmation.
type ChargeRequest struct {
	Donation   bool
	PlanID     string // subscriptions only
	Amount     int64  // donations only; plans derive the amount from the catalog
	Phone      string // any accepted form; normalized before use
	PayerName  string
	PayerEmail string // optional for donations
	Note       string // optional donor message
}

// InitiateResult is returned to the caller after the STK push was accepted.
type InitiateResult struct {
	Reference    string
	Amount       int64
	PlanName     string
	CategoryName string
	Message      string // human-readable confirmation for the payer
}

// StatusResult is the outcome of one status poll.
type StatusResult struct {
	Status  model.PaymentStatus
	Message string
}

type PaymentUseCase interface {
	// Initiate validates the request, sends the push-payment and persists a
	// pending payment record keyed by a fresh reference.
	Initiate(ctx context.Context, req ChargeRequest) (*InitiateResult, error)
	// CheckStatus polls the charge and, on the first success, fulfills it
	// exactly once (credential delivery or donation thank-you).
	CheckStatus(ctx context.Context, reference string) (*StatusResult, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	catalog   repository.Catalog
	inventory repository.CredentialInventory
	gateway   adapter.PaymentGateway
	notifier  adapter.Notifier
	locker    Locker // nil when running a single instance
	meter     Meter

	donationMin int64
	donationMax int64
	opsContact  string // recipient for inventory shortage alerts

	mu   sync.Mutex
	refs map[string]*sync.Mutex // per-reference serialization

	log *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	catalog repository.Catalog,
	inventory repository.CredentialInventory,
	gateway adapter.PaymentGateway,
	notifier adapter.Notifier,
	locker Locker,
	meter Meter,
	donationMin, donationMax int64,
	opsContact string,
	logger *zerolog.Logger,
) *paymentUC {
	if meter == nil {
		meter = noopMeter{}
	}
	compLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments:    payments,
		catalog:     catalog,
		inventory:   inventory,
		gateway:     gateway,
		notifier:    notifier,
		locker:      locker,
		meter:       meter,
		donationMin: donationMin,
		donationMax: donationMax,
		opsContact:  opsContact,
		refs:        make(map[string]*sync.Mutex),
		log:         &compLog,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, req ChargeRequest) (*InitiateResult, error) {
	phone, err := model.NormalizeMSISDN(req.Phone)
	if err != nil {
		return nil, err
	}
	if req.PayerName == "" {
		return nil, fmt.Errorf("payer name is required: %w", domain.ErrInvalidArgument)
	}

	res := &InitiateResult{}
	intent := model.IntentSubscription
	var amount int64
	var planID string

	if req.Donation {
		intent = model.IntentDonation
		amount = req.Amount
		if amount < u.donationMin || amount > u.donationMax {
			return nil, fmt.Errorf("amount %d not in [%d, %d]: %w", amount, u.donationMin, u.donationMax, domain.ErrAmountOutOfRange)
		}
	} else {
		if req.PayerEmail == "" {
			return nil, fmt.Errorf("email is required for subscriptions: %w", domain.ErrInvalidArgument)
		}
		plan, category, err := u.catalog.FindPlan(ctx, req.PlanID)
		if err != nil {
			return nil, err
		}
		planID = plan.ID
		amount = plan.Price
		res.PlanName = plan.Name
		res.CategoryName = category.Name
	}

	reference, err := u.freshReference(ctx, intent, planID)
	if err != nil {
		return nil, err
	}

	ack, err := u.gateway.InitiateCharge(ctx, phone, amount, reference, req.PayerName)
	if err != nil {
		// No record persists on initiation failure; the client re-submits.
		u.log.Warn().Err(err).Str("reference", reference).Msg("charge initiation failed")
		return nil, err
	}

	now := time.Now()
	rec := &model.PaymentRecord{
		ID:          uuid.NewString(),
		Reference:   reference,
		Intent:      intent,
		PlanID:      planID,
		Provider:    u.gateway.Name(),
		Amount:      amount,
		Currency:    "KES",
		Phone:       phone,
		PayerName:   req.PayerName,
		PayerEmail:  req.PayerEmail,
		ProviderRef: ack.ProviderRef,
		Status:      model.PaymentStatusPending,
		Message:     ack.CustomerMessage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.payments.Create(ctx, repository.NoTX, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// The charge went out under a reference we cannot record. Surface
			// loudly; the reconciler cannot resolve a reference it never saw.
			u.log.Error().Str("reference", reference).Msg("reference collided after charge initiation")
		}
		return nil, err
	}
	u.meter.PaymentStatus(string(model.PaymentStatusPending))

	res.Reference = reference
	res.Amount = amount
	res.Message = ack.CustomerMessage
	if res.Message == "" {
		res.Message = fmt.Sprintf("Payment of KES %d initiated. Enter your M-Pesa PIN on %s to complete.", amount, phone)
	}
	return res, nil
}

// freshReference generates a reference and verifies it is unused, retrying
// once on the vanishingly unlikely ULID collision.
func (u *paymentUC) freshReference(ctx context.Context, intent model.PaymentIntent, planID string) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ref := model.NewReference(intent, planID)
		_, err := u.payments.FindByReference(ctx, repository.NoTX, ref)
		if errors.Is(err, domain.ErrNotFound) {
			return ref, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate a unique payment reference: %w", domain.ErrAlreadyExists)
}

func (u *paymentUC) CheckStatus(ctx context.Context, reference string) (*StatusResult, error) {
	rec, err := u.payments.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return nil, err
	}

	// Fast path: terminal and settled, nothing left to do.
	if rec.FulfillmentSettled() {
		return &StatusResult{Status: rec.Status, Message: rec.Message}, nil
	}

	settled := false
	unlock := u.lockRef(reference)
	defer func() {
		unlock()
		if settled {
			u.dropRef(reference)
		}
	}()

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, "payment:lock:"+reference, 30*time.Second)
		if err != nil {
			// Another replica is finalizing this reference; report the last
			// cached state instead of racing it.
			return &StatusResult{Status: rec.Status, Message: rec.Message}, nil
		}
		defer func() { _ = u.locker.Unlock(ctx, "payment:lock:"+reference, token) }()
	}

	// Re-read under the lock: a concurrent poller may have finalized.
	rec, err = u.payments.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return nil, err
	}
	if rec.FulfillmentSettled() {
		settled = true
		return &StatusResult{Status: rec.Status, Message: rec.Message}, nil
	}

	state, err := u.gateway.QueryStatus(ctx, reference)
	if err != nil {
		// Transient: the record stays as it was and the caller retries.
		return nil, fmt.Errorf("status query for %s: %w", reference, err)
	}

	switch state.Status {
	case model.PaymentStatusFailed:
		if err := u.payments.UpdateStatus(ctx, repository.NoTX, reference, model.PaymentStatusFailed, state.ProviderMessage, nil); err != nil {
			return nil, err
		}
		u.meter.PaymentStatus(string(model.PaymentStatusFailed))
		u.log.Info().Str("reference", reference).Msg("payment failed")
		settled = true
		return &StatusResult{Status: model.PaymentStatusFailed, Message: state.ProviderMessage}, nil

	case model.PaymentStatusSuccess:
		now := time.Now()
		if rec.Status != model.PaymentStatusSuccess {
			if err := u.payments.UpdateStatus(ctx, repository.NoTX, reference, model.PaymentStatusSuccess, state.ProviderMessage, &now); err != nil {
				return nil, err
			}
			u.meter.PaymentStatus(string(model.PaymentStatusSuccess))
			u.meter.Revenue(rec.Currency, rec.Amount)
		}
		msg, done := u.fulfill(ctx, rec, state.ProviderMessage)
		settled = done
		return &StatusResult{Status: model.PaymentStatusSuccess, Message: msg}, nil

	default:
		// Still pending; remember the latest provider message.
		if state.ProviderMessage != "" && state.ProviderMessage != rec.Message {
			_ = u.payments.UpdateStatus(ctx, repository.NoTX, reference, model.PaymentStatusPending, state.ProviderMessage, nil)
		}
		msg := state.ProviderMessage
		if msg == "" {
			msg = "Waiting for payment confirmation"
		}
		return &StatusResult{Status: model.PaymentStatusPending, Message: msg}, nil
	}
}

// fulfill runs exactly once per successful charge, under the per-reference
// lock: allocate and deliver a credential for subscriptions, or send a
// thank-you for donations. The record is marked fulfilled before anything is
// delivered, so a storage failure can never hand the same credential out
// twice. Returns the message to show the payer, and whether the record
// reached a settled state.
func (u *paymentUC) fulfill(ctx context.Context, rec *model.PaymentRecord, providerMsg string) (string, bool) {
	if rec.Intent == model.IntentDonation {
		if err := u.payments.MarkFulfilled(ctx, repository.NoTX, rec.Reference, "", false); err != nil {
			u.log.Error().Err(err).Str("reference", rec.Reference).Msg("mark fulfilled failed")
			return "Donation confirmed. Thank you for your support!", false
		}
		if rec.PayerEmail != "" {
			body := fmt.Sprintf("Dear %s,\n\nThank you for your generous donation of KES %d. Your support keeps this service running.\n", rec.PayerName, rec.Amount)
			if err := u.notifier.Send(ctx, rec.PayerEmail, "Thank you for your donation", body); err != nil {
				u.log.Error().Err(err).Str("reference", rec.Reference).Msg("donation thank-you delivery failed")
			}
		}
		u.meter.Fulfillment("donation")
		return "Donation confirmed. Thank you for your support!", true
	}

	credential, err := u.inventory.TakeOne(ctx, rec.PlanID)
	if errors.Is(err, domain.ErrInventoryEmpty) {
		// Confirmed payment, nothing to hand over: flag the shortage and
		// alert operations instead of silently succeeding.
		if err := u.payments.MarkFulfilled(ctx, repository.NoTX, rec.Reference, "", true); err != nil {
			u.log.Error().Err(err).Str("reference", rec.Reference).Msg("mark shortage failed")
			return "Payment confirmed. Your credentials will be delivered shortly.", false
		}
		u.meter.Shortage(rec.PlanID)
		u.alertShortage(ctx, rec)
		return "Payment confirmed. Your credentials will be delivered shortly.", true
	}
	if err != nil {
		// Transient inventory error. The record stays unfulfilled and the
		// next poll retries the allocation.
		u.log.Error().Err(err).Str("reference", rec.Reference).Msg("inventory take failed")
		return "Payment confirmed. Your credentials will be delivered shortly.", false
	}

	if err := u.payments.MarkFulfilled(ctx, repository.NoTX, rec.Reference, credential, false); err != nil {
		u.log.Error().Err(err).Str("reference", rec.Reference).Msg("mark fulfilled failed")
		// Nothing was delivered yet: put the credential back so the next
		// poll can retry with a clean slate.
		if rErr := u.inventory.ReturnOne(ctx, rec.PlanID, credential); rErr != nil {
			u.log.Error().Err(rErr).Str("reference", rec.Reference).Msg("credential return failed, manual follow-up required")
		}
		return "Payment confirmed. Your credentials will be delivered shortly.", false
	}

	subject := fmt.Sprintf("Your %s account details", rec.PlanID)
	body := fmt.Sprintf("Dear %s,\n\nYour payment of KES %d was received (ref %s).\n\nAccount credentials:\n%s\n\nEnjoy!\n", rec.PayerName, rec.Amount, rec.Reference, credential)
	if err := u.notifier.Send(ctx, rec.PayerEmail, subject, body); err != nil {
		// Policy: delivery failure does not revert the payment and does not
		// return the credential; the record keeps it for manual follow-up.
		u.log.Error().Err(err).Str("reference", rec.Reference).Msg("credential delivery failed, manual follow-up required")
	}
	u.meter.Fulfillment("subscription")
	u.log.Info().Str("reference", rec.Reference).Str("plan", rec.PlanID).Msg("payment fulfilled")
	return "Payment confirmed. Check your email for account credentials.", true
}

func (u *paymentUC) alertShortage(ctx context.Context, rec *model.PaymentRecord) {
	u.log.Error().Str("reference", rec.Reference).Str("plan", rec.PlanID).Msg("inventory shortage on confirmed payment")
	if u.opsContact == "" {
		return
	}
	body := fmt.Sprintf("Payment %s (plan %s, KES %d, payer %s) is confirmed but no credential was available. Restock and deliver manually.", rec.Reference, rec.PlanID, rec.Amount, rec.PayerEmail)
	if err := u.notifier.Send(ctx, u.opsContact, "Inventory shortage: "+rec.PlanID, body); err != nil {
		u.log.Error().Err(err).Msg("shortage alert delivery failed")
	}
}

// lockRef serializes all work for one reference within this process.
func (u *paymentUC) lockRef(reference string) func() {
	u.mu.Lock()
	m, ok := u.refs[reference]
	if !ok {
		m = &sync.Mutex{}
		u.refs[reference] = m
	}
	u.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// dropRef evicts the mutex for a settled reference so the map does not grow
// for the life of the process. Settled records are immutable, so a fresh
// mutex for a late poller is harmless.
func (u *paymentUC) dropRef(reference string) {
	u.mu.Lock()
	delete(u.refs, reference)
	u.mu.Unlock()
}
