// File: cmd/demo/main.go
//
// Runs the full charge lifecycle in-process with no external services: YAML
// catalog, in-memory stores, a gateway that confirms after a few polls and a
// log-only notifier. Useful for a quick local sanity check of the flow.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/repository"
	"mpesa-subscription-shop/internal/infra/adapters/notify"
	payAdapters "mpesa-subscription-shop/internal/infra/adapters/payment"
	"mpesa-subscription-shop/internal/infra/catalog"
	"mpesa-subscription-shop/internal/infra/inventory"
	"mpesa-subscription-shop/internal/usecase"
)

// memPayments is a map-backed PaymentRepository, enough for a single run.
type memPayments struct {
	mu    sync.Mutex
	store map[string]*model.PaymentRecord
}

func newMemPayments() *memPayments {
	return &memPayments{store: make(map[string]*model.PaymentRecord)}
}

func (m *memPayments) Create(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.store[p.Reference] = &cp
	return nil
}

func (m *memPayments) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) UpdateStatus(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, message string, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[reference]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status.Terminal() && status == model.PaymentStatusPending {
		return nil
	}
	p.Status = status
	p.Message = message
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPayments) MarkFulfilled(ctx context.Context, tx repository.Tx, reference string, credential string, shortage bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[reference]
	if !ok {
		return domain.ErrNotFound
	}
	p.Fulfilled = !shortage
	p.Shortage = shortage
	p.Credential = credential
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPayments) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	return nil, nil
}

func (m *memPayments) DeleteTerminalOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (m *memPayments) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.PaymentStatus]int64)
	for _, p := range m.store {
		out[p.Status]++
	}
	return out, nil
}

func (m *memPayments) SumRevenueSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	return 0, nil
}

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cat, err := catalog.Load("catalog.yaml")
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	inv := inventory.NewMemoryStore()
	if err := inv.Add(ctx, "netflix", "demo-user-1:demo-pass-1"); err != nil {
		log.Fatalf("seed inventory: %v", err)
	}

	payments := newMemPayments()
	gateway := payAdapters.NewNoopGateway(3) // confirms on the third poll
	notifier := notify.NewLogNotifier(&logger)

	uc := usecase.NewPaymentUseCase(
		payments, cat, inv, gateway, notifier, nil, nil,
		1, 150_000, "ops@example.com", &logger,
	)

	res, err := uc.Initiate(ctx, usecase.ChargeRequest{
		PlanID:     "netflix",
		Phone:      "0712345678",
		PayerName:  "Demo Customer",
		PayerEmail: "demo@example.com",
	})
	if err != nil {
		log.Fatalf("initiate: %v", err)
	}
	fmt.Printf("initiated %s for %d KES (%s)\n", res.Reference, res.Amount, res.PlanName)

	for i := 1; ; i++ {
		st, err := uc.CheckStatus(ctx, res.Reference)
		if err != nil {
			log.Fatalf("poll %d: %v", i, err)
		}
		fmt.Printf("poll %d: %s %s\n", i, st.Status, st.Message)
		if st.Status.Terminal() {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	rec, err := payments.FindByReference(ctx, nil, res.Reference)
	if err != nil {
		log.Fatalf("find: %v", err)
	}
	fmt.Printf("fulfilled=%v credential=%q\n", rec.Fulfilled, rec.Credential)
}
