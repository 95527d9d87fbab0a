// Package metrics exposes Prometheus counters for relay outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks what happened to each push/send request.
type Metrics struct {
	pushes *prometheus.CounterVec
}

// Outcome labels for the pushes counter.
const (
	OutcomeDelivered   = "delivered"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeRejected    = "rejected"
)

// New registers the relay counters with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "push_relay",
			Name:      "pushes_total",
			Help:      "Push send requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.pushes)
	return m
}

func (m *Metrics) RecordPush(outcome string) {
	m.pushes.WithLabelValues(outcome).Inc()
}
