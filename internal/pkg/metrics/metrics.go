// Package metrics holds the storefront domain counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	CartFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_fetches_total",
			Help: "Cart reads by where they were served from",
		},
		[]string{"source"},
	)

	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations sent to the marketplace",
		},
		[]string{"op", "result"},
	)

	VendorConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_vendor_conflicts_total",
			Help: "Cross-vendor add attempts by how they were resolved",
		},
		[]string{"outcome"},
	)

	CouponSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_coupon_selections_total",
			Help: "Coupon selections by result",
		},
		[]string{"result"},
	)

	CheckoutInitiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_initiations_total",
			Help: "Payment session requests by result",
		},
		[]string{"result"},
	)

	ConsumedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_consumed_events_total",
			Help: "Order events handled by the consumer",
		},
		[]string{"event_type", "result"},
	)
)

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
