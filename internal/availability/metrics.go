package availability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments availability decisions. All methods are nil-safe so
// callers never have to guard instrumentation.
type Metrics struct {
	decisions   *prometheus.CounterVec
	checkErrors *prometheus.CounterVec
}

// NewMetrics creates and registers availability metrics on the registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "availability_decisions_total",
			Help:      "Availability decisions by outcome and reason.",
		}, []string{"available", "reason"}),
		checkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "availability_check_errors_total",
			Help:      "Dependency failures during availability checks, by check.",
		}, []string{"check"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.checkErrors)
	}
	return m
}

// RecordDecision counts one availability decision.
func (m *Metrics) RecordDecision(d Decision) {
	if m == nil {
		return
	}
	available := "false"
	if d.Available {
		available = "true"
	}
	m.decisions.WithLabelValues(available, string(d.Reason)).Inc()
}

// RecordCheckError counts one failed dependency read.
func (m *Metrics) RecordCheckError(check string) {
	if m == nil {
		return
	}
	m.checkErrors.WithLabelValues(check).Inc()
}
