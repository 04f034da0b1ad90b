package authapi

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes by operation.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Auth operations by operation and outcome.",
		}, []string{"op", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

func (m *Metrics) observe(op, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(op, outcome).Inc()
}
