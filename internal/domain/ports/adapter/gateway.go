package adapter

import (
	"context"

	"mpesa-subscription-shop/internal/domain/model"
)

// ChargeAck is the provider's answer to a push-payment initiation.
type ChargeAck struct {
	ProviderRef     string // provider-side transaction id (e.g. CheckoutRequestID)
	CustomerMessage string // human-readable confirmation shown to the payer
}

// ChargeState is the provider's view of a charge when polled.
type ChargeState struct {
	Status          model.PaymentStatus // pending | success | failed
	ProviderMessage string
}

// PaymentGateway is the hex port for mobile-money push-payment providers.
//
// InitiateCharge is a single attempt: retry policy belongs to the caller.
// Errors distinguish transport trouble (domain.ErrGatewayUnavailable) from
// the provider refusing the charge (domain.ErrChargeRejected). A transaction
// that failed after being accepted is not an error from QueryStatus; it is a
// ChargeState with status failed.
type PaymentGateway interface {
	Name() string
	InitiateCharge(ctx context.Context, phone string, amount int64, reference, payerName string) (ChargeAck, error)
	QueryStatus(ctx context.Context, reference string) (ChargeState, error)
}
