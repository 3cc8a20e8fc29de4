package metrics

import "mpesa-subscription-shop/internal/usecase"

var _ usecase.Meter = Meter{}

// Meter feeds the use-case business events into the Prometheus counters.
type Meter struct{}

func NewMeter() Meter { return Meter{} }

func (Meter) PaymentStatus(status string) { IncPayment(status) }

func (Meter) Revenue(currency string, amount int64) { AddPaymentRevenue(currency, amount) }

func (Meter) Fulfillment(intent string) { IncFulfillment(intent) }

func (Meter) Shortage(planID string) { IncInventoryShortage(planID) }
