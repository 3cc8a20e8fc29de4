//go:build !integration

package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/adapter"
	"mpesa-subscription-shop/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memPaymentRepo is a small in-memory implementation used by unit tests.
type memPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PaymentRecord // keyed by reference

	createErr error // used by tests to simulate storage failures

	MarkFulfilledFunc func(ctx context.Context, tx repository.Tx, reference string, credential string, shortage bool) error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.PaymentRecord)}
}

func (m *memPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.store[p.Reference] = &cp
	return nil
}

func (m *memPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, message string, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[reference]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status.Terminal() && status == model.PaymentStatusPending {
		return nil // transitions are monotonic
	}
	p.Status = status
	p.Message = message
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPaymentRepo) MarkFulfilled(ctx context.Context, tx repository.Tx, reference string, credential string, shortage bool) error {
	if m.MarkFulfilledFunc != nil {
		return m.MarkFulfilledFunc(ctx, tx, reference, credential, shortage)
	}
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

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentRecord
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPaymentRepo) DeleteTerminalOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for ref, p := range m.store {
		if p.FulfillmentSettled() && p.UpdatedAt.Before(olderThan) {
			delete(m.store, ref)
			n++
		}
	}
	return n, nil
}

func (m *memPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.PaymentStatus]int64)
	for _, p := range m.store {
		out[p.Status]++
	}
	return out, nil
}

func (m *memPaymentRepo) SumRevenueSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusSuccess && p.PaidAt != nil && p.PaidAt.After(since) {
			sum += p.Amount
		}
	}
	return sum, nil
}

// memInventory is a per-plan credential queue with call counters.
type memInventory struct {
	mu    sync.Mutex
	lists   map[string][]string
	takes   int64 // total successful TakeOne calls
	returns int64
}

func newMemInventory() *memInventory {
	return &memInventory{lists: make(map[string][]string)}
}

func (m *memInventory) TakeOne(ctx context.Context, planID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[planID]
	if len(list) == 0 {
		return "", domain.ErrInventoryEmpty
	}
	cred := list[0]
	m.lists[planID] = list[1:]
	atomic.AddInt64(&m.takes, 1)
	return cred, nil
}

func (m *memInventory) ReturnOne(ctx context.Context, planID, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[planID] = append([]string{credential}, m.lists[planID]...)
	atomic.AddInt64(&m.returns, 1)
	return nil
}

func (m *memInventory) Add(ctx context.Context, planID string, credentials ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[planID] = append(m.lists[planID], credentials...)
	return nil
}

func (m *memInventory) Count(ctx context.Context, planID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[planID]), nil
}

func (m *memInventory) takeCount() int64 { return atomic.LoadInt64(&m.takes) }

func (m *memInventory) returnCount() int64 { return atomic.LoadInt64(&m.returns) }

// memCatalog serves a fixed category tree.
type memCatalog struct {
	categories []model.Category
}

func newMemCatalog() *memCatalog {
	return &memCatalog{categories: []model.Category{
		{
			ID:   "streaming",
			Name: "Streaming Services",
			Plans: []model.Plan{
				{ID: "netflix", Name: "Netflix Premium", Price: 500, Duration: "1 Month"},
				{ID: "spotify", Name: "Spotify Premium", Price: 180, Duration: "1 Month"},
			},
		},
	}}
}

func (m *memCatalog) FindPlan(ctx context.Context, planID string) (*model.Plan, *model.Category, error) {
	for i := range m.categories {
		for j := range m.categories[i].Plans {
			if m.categories[i].Plans[j].ID == planID {
				plan := m.categories[i].Plans[j]
				cat := m.categories[i]
				return &plan, &cat, nil
			}
		}
	}
	return nil, nil, domain.ErrPlanNotFound
}

func (m *memCatalog) Categories(ctx context.Context) ([]model.Category, error) {
	return m.categories, nil
}

// mockGateway lets tests script provider behavior and observe call counts.
type mockGateway struct {
	InitiateChargeFunc func(ctx context.Context, phone string, amount int64, reference, payerName string) (adapter.ChargeAck, error)
	QueryStatusFunc    func(ctx context.Context, reference string) (adapter.ChargeState, error)

	initiateCalls int64
	queryCalls    int64
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) InitiateCharge(ctx context.Context, phone string, amount int64, reference, payerName string) (adapter.ChargeAck, error) {
	atomic.AddInt64(&g.initiateCalls, 1)
	if g.InitiateChargeFunc != nil {
		return g.InitiateChargeFunc(ctx, phone, amount, reference, payerName)
	}
	return adapter.ChargeAck{ProviderRef: "chk-1", CustomerMessage: "STK push sent"}, nil
}

func (g *mockGateway) QueryStatus(ctx context.Context, reference string) (adapter.ChargeState, error) {
	atomic.AddInt64(&g.queryCalls, 1)
	if g.QueryStatusFunc != nil {
		return g.QueryStatusFunc(ctx, reference)
	}
	return adapter.ChargeState{Status: model.PaymentStatusPending}, nil
}

func (g *mockGateway) queryCount() int64 { return atomic.LoadInt64(&g.queryCalls) }

// sentMail captures one Notifier.Send call.
type sentMail struct {
	Recipient, Subject, Body string
}

type mockNotifier struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

func (n *mockNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, sentMail{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (n *mockNotifier) sentTo(recipient string) []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMail
	for _, s := range n.sent {
		if s.Recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}

func (n *mockNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// mockMeter counts business events per label.
type mockMeter struct {
	mu           sync.Mutex
	statuses     map[string]int
	revenue      int64
	fulfillments map[string]int
	shortages    map[string]int
}

func (m *mockMeter) PaymentStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[string]int)
	}
	m.statuses[status]++
}

func (m *mockMeter) Revenue(currency string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revenue += amount
}

func (m *mockMeter) Fulfillment(intent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fulfillments == nil {
		m.fulfillments = make(map[string]int)
	}
	m.fulfillments[intent]++
}

func (m *mockMeter) Shortage(planID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shortages == nil {
		m.shortages = make(map[string]int)
	}
	m.shortages[planID]++
}

func (m *mockMeter) statusCount(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[status]
}

func (m *mockMeter) fulfillmentCount(intent string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fulfillments[intent]
}

func (m *mockMeter) revenueTotal() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revenue
}
