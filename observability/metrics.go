package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AgreementMetrics records RPC activity against the agreement engine.
type AgreementMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var (
	agreementMetricsOnce sync.Once
	agreementRegistry    *AgreementMetrics
)

// Agreement returns the lazily-initialised metrics registry used to record
// agreement transition activity.
func Agreement() *AgreementMetrics {
	agreementMetricsOnce.Do(func() {
		agreementRegistry = &AgreementMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pact",
				Subsystem: "agreement",
				Name:      "transitions_total",
				Help:      "Total agreement transitions segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "pact",
				Subsystem: "agreement",
				Name:      "transition_duration_seconds",
				Help:      "Latency distribution for agreement transition handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
		}
		prometheus.MustRegister(agreementRegistry.transitions, agreementRegistry.latency)
	})
	return agreementRegistry
}

// Observe records one handled transition attempt.
func (m *AgreementMetrics) Observe(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(duration.Seconds())
}
