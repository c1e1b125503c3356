package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox publish outcomes.
const (
	PublishPublished = "published"
	PublishRetry     = "retry"
	PublishDLQ       = "dlq"
)

// OutboxMetrics counts publish outcomes per event type.
type OutboxMetrics struct {
	publishes *prometheus.CounterVec
	batches   prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sunrise",
		Subsystem: "outbox",
		Name:      "publish_total",
		Help:      "Outbox rows processed by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batches := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sunrise",
		Subsystem: "outbox",
		Name:      "batch_rows",
		Help:      "Rows claimed per publisher batch.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(publishes, batches)
	return &OutboxMetrics{publishes: publishes, batches: batches}
}

// Publish counts one processed outbox row.
func (o *OutboxMetrics) Publish(eventType, outcome string) {
	if o == nil || o.publishes == nil {
		return
	}
	o.publishes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveBatch records how many rows a batch claimed.
func (o *OutboxMetrics) ObserveBatch(rows int) {
	if o == nil || o.batches == nil {
		return
	}
	o.batches.Observe(float64(rows))
}
