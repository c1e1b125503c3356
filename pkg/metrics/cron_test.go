package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronMetrics(reg)
	finished := time.Date(2026, 10, 17, 5, 0, 0, 0, time.UTC)
	m.ObserveRun("order-expiry", RunSucceeded, 250*time.Millisecond, finished)
	m.ObserveRun("order-expiry", RunFailed, time.Second, finished.Add(time.Minute))
	m.LockContended()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "sunrise_cron_job_runs_total")
	if runs == nil {
		t.Fatal("runs counter not exported")
	}
	counts := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		for _, l := range metric.GetLabel() {
			if l.GetName() == "outcome" {
				counts[l.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	if counts[RunSucceeded] != 1 || counts[RunFailed] != 1 {
		t.Fatalf("unexpected run counts %v", counts)
	}

	if got, err := fetchHistogramSum(mfs, "sunrise_cron_job_duration_seconds", "job", "order-expiry"); err != nil || got != 1.25 {
		t.Fatalf("expected duration sum 1.25, got %f (%v)", got, err)
	}

	last := findMetricFamily(mfs, "sunrise_cron_job_last_success_timestamp_seconds")
	if last == nil || last.GetMetric()[0].GetGauge().GetValue() != float64(finished.Unix()) {
		t.Fatal("last success should track only the successful run")
	}

	contended := findMetricFamily(mfs, "sunrise_cron_lock_contended_total")
	if contended == nil || contended.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one contended cycle")
	}
}

func TestNilCronMetricsIsNoop(t *testing.T) {
	var m *CronMetrics
	m.ObserveRun("x", RunPanicked, time.Second, time.Now())
	m.LockContended()
	NewCronMetrics(nil).ObserveRun("", "", 0, time.Time{})
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, errMissing(name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, errMissing(name + "{" + label + "=" + value + "}")
}

type errMissing string

func (e errMissing) Error() string { return "metric " + string(e) + " not found" }

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
