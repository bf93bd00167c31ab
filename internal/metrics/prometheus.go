package metrics

import (
	"time"

	"billing-checkout/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records checkout transitions and payment gateway latencies.
type Collector struct {
	transitions *prometheus.CounterVec
	gatewayCall *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Subsystem: "checkout",
		Name:      "transitions_total",
		Help:      "Checkout status transitions committed.",
	}, []string{"from", "to"})
	gatewayCall := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "billing",
		Subsystem: "gateway",
		Name:      "call_duration_seconds",
		Help:      "Payment gateway call latency.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"operation", "outcome"})

	reg.MustRegister(transitions, gatewayCall)
	return &Collector{transitions: transitions, gatewayCall: gatewayCall}
}

// Transition counts a committed status change. Creation is reported with an
// empty from status.
func (c *Collector) Transition(from, to domain.CheckoutStatus) {
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// GatewayCall observes how long a gateway operation took and whether it failed.
func (c *Collector) GatewayCall(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.gatewayCall.WithLabelValues(operation, outcome).Observe(time.Since(started).Seconds())
}
