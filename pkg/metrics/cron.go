package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron run outcomes.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunPanicked  = "panicked"
)

// CronMetrics tracks job runs, their latency, the last success per job and
// cycles skipped because another replica held the lock.
type CronMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	contended   prometheus.Counter
}

// NewCronMetrics registers on reg; a nil registerer yields a no-op recorder.
func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "sunrise", Subsystem: "cron", Name: name, Help: help}
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts(opts("job_runs_total", "Cron job runs by outcome.")), []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sunrise",
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Cron job wall time.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 15, 30, 60, 120},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts(opts("job_last_success_timestamp_seconds", "Unix time of the last successful run.")), []string{"job"}),
		contended:   prometheus.NewCounter(prometheus.CounterOpts(opts("lock_contended_total", "Cycles skipped because the lock was held elsewhere."))),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.contended)
	return m
}

// ObserveRun records one finished run. outcome is one of the Run* constants.
func (c *CronMetrics) ObserveRun(job, outcome string, took time.Duration, finished time.Time) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == RunSucceeded {
		c.lastSuccess.WithLabelValues(job).Set(float64(finished.Unix()))
	}
}

func (c *CronMetrics) LockContended() {
	if c == nil || c.contended == nil {
		return
	}
	c.contended.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
