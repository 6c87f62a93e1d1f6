package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_reserved_total",
			Help: "Tickets allocated to orders",
		},
	)

	ticketsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_released_total",
			Help: "Tickets released back to inventory",
		},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order state transitions by target status",
		},
		[]string{"status", "variant"},
	)

	gatewayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_failures_total",
			Help: "Failed payment gateway operations",
		},
		[]string{"variant", "operation"},
	)

	sweptOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_sweep_orders_total",
			Help: "Orders examined by the expiry sweeper by outcome",
		},
		[]string{"outcome"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Duration of one expiry sweep",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)

const (
	SweepReclaimed = "reclaimed"
	SweepSkipped   = "skipped"
	SweepFailed    = "failed"
)

func TicketsReserved(n int) {
	ticketsReserved.Add(float64(n))
}

func TicketsReleased(n int) {
	ticketsReleased.Add(float64(n))
}

func OrderTransition(status, variant string) {
	orderTransitions.WithLabelValues(status, variant).Inc()
}

func GatewayFailure(variant, operation string) {
	gatewayFailures.WithLabelValues(variant, operation).Inc()
}

func SweptOrder(outcome string) {
	sweptOrders.WithLabelValues(outcome).Inc()
}

func ObserveSweep(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}

// Collectors exposes the vectors to tests.
var Collectors = struct {
	TicketsReserved  prometheus.Counter
	TicketsReleased  prometheus.Counter
	OrderTransitions *prometheus.CounterVec
	GatewayFailures  *prometheus.CounterVec
	SweptOrders      *prometheus.CounterVec
}{
	TicketsReserved:  ticketsReserved,
	TicketsReleased:  ticketsReleased,
	OrderTransitions: orderTransitions,
	GatewayFailures:  gatewayFailures,
	SweptOrders:      sweptOrders,
}
