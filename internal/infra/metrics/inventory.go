package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		inventoryTakesTotal,
		inventoryReturnsTotal,
		inventoryShortagesTotal,
	)
}

var (
	inventoryTakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_takes_total",
			Help: "Credentials allocated from inventory, per plan.",
		},
		[]string{"plan"},
	)

	inventoryReturnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_returns_total",
			Help: "Credentials returned to inventory, per plan.",
		},
		[]string{"plan"},
	)

	inventoryShortagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_shortages_total",
			Help: "Confirmed payments that found the plan's credential list empty.",
		},
		[]string{"plan"},
	)
)

func IncInventoryTake(plan string) {
	inventoryTakesTotal.WithLabelValues(norm(plan)).Inc()
}

func IncInventoryReturn(plan string) {
	inventoryReturnsTotal.WithLabelValues(norm(plan)).Inc()
}

func IncInventoryShortage(plan string) {
	inventoryShortagesTotal.WithLabelValues(norm(plan)).Inc()
}
