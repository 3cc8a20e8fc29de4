package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // STK push sent; awaiting payer action
	PaymentStatusSuccess PaymentStatus = "success" // provider confirmed the charge
	PaymentStatusFailed  PaymentStatus = "failed"  // provider reported the charge failed
)

// Terminal reports whether a status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

type PaymentIntent string

const (
	IntentSubscription PaymentIntent = "subscription"
	IntentDonation     PaymentIntent = "donation"
)

// PaymentRecord tracks a single mobile-money charge for its whole lifetime.
// The reference is the only correlation key between initiation, polling and
// fulfillment; it never changes once issued.
type PaymentRecord struct {
	ID          string // UUID
	Reference   string // e.g. NETFLIX-01J8X... or DONATION-01J8X...
	Intent      PaymentIntent
	PlanID      string // empty for donations
	Provider    string // e.g. "payhero"
	Amount      int64  // whole KES
	Currency    string
	Phone       string // canonical 2547XXXXXXXX
	PayerName   string
	PayerEmail  string // optional for donations
	ProviderRef string // provider-side id returned at initiation
	Status      PaymentStatus
	Message     string // last human-readable provider message

	// Fulfilled flips to true exactly once, when credential or thank-you
	// delivery has run for a successful charge. Shortage records a confirmed
	// payment that found the plan's credential list empty; such a record is
	// still terminal for polling purposes but needs manual follow-up.
	Fulfilled  bool
	Shortage   bool
	Credential string // delivered credential, kept for reconciliation

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

// FulfillmentSettled reports whether a success poll may return the cached
// record without touching the gateway or inventory again.
func (p *PaymentRecord) FulfillmentSettled() bool {
	switch p.Status {
	case PaymentStatusFailed:
		return true
	case PaymentStatusSuccess:
		return p.Fulfilled || p.Shortage
	default:
		return false
	}
}
