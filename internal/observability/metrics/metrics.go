package metrics

import "github.com/prometheus/client_golang/prometheus"

// WizardMetrics exposes counters/histograms for the booking wizard.
type WizardMetrics struct {
	transitionsTotal  *prometheus.CounterVec
	submissionsTotal  *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec
}

func NewWizardMetrics(reg prometheus.Registerer) *WizardMetrics {
	m := &WizardMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consult",
			Subsystem: "booking",
			Name:      "wizard_transitions_total",
			Help:      "Wizard step moves by origin step, direction and outcome",
		}, []string{"step", "direction", "outcome"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consult",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Meeting submissions to the remote API",
		}, []string{"mode", "outcome"}),
		submissionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "consult",
			Subsystem: "booking",
			Name:      "submission_latency_seconds",
			Help:      "Latency of meeting submissions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.submissionsTotal, m.submissionLatency)
	return m
}

// ObserveTransition records a next/prev attempt leaving step.
func (m *WizardMetrics) ObserveTransition(step, direction string, ok bool) {
	if m == nil {
		return
	}
	outcome := "blocked"
	if ok {
		outcome = "moved"
	}
	m.transitionsTotal.WithLabelValues(step, direction, outcome).Inc()
}

// ObserveSubmission satisfies meetingapi.Observer.
func (m *WizardMetrics) ObserveSubmission(mode, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(mode, outcome).Inc()
	m.submissionLatency.WithLabelValues(mode).Observe(seconds)
}
