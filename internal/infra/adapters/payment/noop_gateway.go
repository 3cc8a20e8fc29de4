package payment

import (
	"context"
	"fmt"
	"sync"

	"mpesa-subscription-shop/internal/domain"
	"mpesa-subscription-shop/internal/domain/model"
	"mpesa-subscription-shop/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for dev mode and tests. Every
// charge is accepted and reports success after `succeedAfter` polls.
type NoopGateway struct {
	mu           sync.Mutex
	seq          int64
	polls        map[string]int // reference -> poll count
	succeedAfter int
}

func NewNoopGateway(succeedAfter int) *NoopGateway {
	if succeedAfter < 1 {
		succeedAfter = 1
	}
	return &NoopGateway{polls: make(map[string]int), succeedAfter: succeedAfter}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) InitiateCharge(ctx context.Context, phone string, amount int64, reference, payerName string) (adapter.ChargeAck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.polls[reference] = 0
	return adapter.ChargeAck{
		ProviderRef:     fmt.Sprintf("noop-%d", g.seq),
		CustomerMessage: fmt.Sprintf("Simulated M-Pesa prompt for KES %d", amount),
	}, nil
}

func (g *NoopGateway) QueryStatus(ctx context.Context, reference string) (adapter.ChargeState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.polls[reference]
	if !ok {
		return adapter.ChargeState{}, fmt.Errorf("noop: unknown reference: %w", domain.ErrGatewayUnavailable)
	}
	g.polls[reference] = n + 1
	if n+1 >= g.succeedAfter {
		return adapter.ChargeState{Status: model.PaymentStatusSuccess, ProviderMessage: "Simulated payment received"}, nil
	}
	return adapter.ChargeState{Status: model.PaymentStatusPending, ProviderMessage: "Simulated wait"}, nil
}
