package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cron_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cron_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCronJobMetricsLastSuccessAndBlankLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	m.MarkSuccess(" ", at)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchGaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "job", "unknown")
	if err != nil {
		t.Fatalf("fetch last success: %v", err)
	}
	if got != float64(at.Unix()) {
		t.Fatalf("expected %d, got %f", at.Unix(), got)
	}
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	if NewCronJobMetrics(nil) != nil {
		t.Fatalf("expected nil recorder without a registerer")
	}
	m.ObserveDuration("job", time.Second)
	m.IncSuccess("job")
	m.IncFailure("job")
	m.MarkSuccess("job", time.Now())
}

func TestReservationMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReservationMetrics(reg)
	m.Observe(OutcomeReserved, 30*time.Millisecond)
	m.Observe(OutcomeRejected, 10*time.Millisecond)
	m.Observe(OutcomeReserved, 20*time.Millisecond)
	m.IncConflict()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "reservation_attempts_total", "outcome", OutcomeReserved); err != nil || got != 2 {
		t.Fatalf("expected 2 reserved, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "reservation_attempts_total", "outcome", OutcomeRejected); err != nil || got != 1 {
		t.Fatalf("expected 1 rejected, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "reservation_conflicts_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one conflict")
	}
}

func TestAlertMetricsResetsMissingSeverities(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAlertMetrics(reg)
	m.SetDue(map[string]int{"danger": 2, "warning": 5}, "danger", "warning")
	m.SetDue(map[string]int{"warning": 1}, "danger", "warning")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "due_alerts")
	if mf == nil {
		t.Fatal("due_alerts not registered")
	}
	for _, metric := range mf.GetMetric() {
		want := 0.0
		if matchesLabel(metric.GetLabel(), "severity", "warning") {
			want = 1
		}
		if got := metric.GetGauge().GetValue(); got != want {
			t.Fatalf("unexpected gauge %v for %v", got, metric.GetLabel())
		}
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewReservationMetrics(nil).Observe(OutcomeFailed, time.Second)
	NewAlertMetrics(nil).SetDue(map[string]int{"danger": 1}, "danger")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
}

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
