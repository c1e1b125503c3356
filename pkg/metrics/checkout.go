package metrics

import "github.com/prometheus/client_golang/prometheus"

// Checkout stages.
const (
	StageBegin   = "begin"
	StageConfirm = "confirm"
	StageExpire  = "expire"
)

// Checkout outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDeclined = "declined"
	OutcomeError    = "error"
	OutcomeReplay   = "replay"
)

// CheckoutMetrics counts checkout stages per payment provider and records
// the value of confirmed orders.
type CheckoutMetrics struct {
	stages      *prometheus.CounterVec
	orderTotals *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	stages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_stage_total",
		Help: "Checkout stage executions by provider and outcome.",
	}, []string{"stage", "provider", "outcome"})
	orderTotals := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_total_dollars",
		Help:    "Total charged per confirmed order, in dollars.",
		Buckets: []float64{10, 25, 50, 75, 100, 150, 250, 500},
	}, []string{"provider"})
	reg.MustRegister(stages, orderTotals)
	return &CheckoutMetrics{stages: stages, orderTotals: orderTotals}
}

// Stage counts one execution of a checkout stage.
func (c *CheckoutMetrics) Stage(stage, provider, outcome string) {
	if c == nil || c.stages == nil {
		return
	}
	c.stages.WithLabelValues(normalizeLabel(stage), normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// ObserveOrderTotal records a confirmed order's total.
func (c *CheckoutMetrics) ObserveOrderTotal(provider string, totalCents int64) {
	if c == nil || c.orderTotals == nil {
		return
	}
	c.orderTotals.WithLabelValues(normalizeLabel(provider)).Observe(float64(totalCents) / 100)
}
