package metrics

import "github.com/prometheus/client_golang/prometheus"

// AlertMetrics exposes the current number of due-date alerts per severity.
type AlertMetrics struct {
	due *prometheus.GaugeVec
}

func NewAlertMetrics(reg prometheus.Registerer) *AlertMetrics {
	if reg == nil {
		return &AlertMetrics{}
	}
	due := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "due_alerts",
		Help: "Open due-date alerts by severity at the last refresh.",
	}, []string{"severity"})
	reg.MustRegister(due)
	return &AlertMetrics{due: due}
}

// SetDue replaces the gauge values; severities missing from counts drop to zero.
func (m *AlertMetrics) SetDue(counts map[string]int, severities ...string) {
	if m == nil || m.due == nil {
		return
	}
	for _, severity := range severities {
		m.due.WithLabelValues(severity).Set(float64(counts[severity]))
	}
}
