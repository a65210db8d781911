package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for allocation_requests_total.
const (
	outcomeCommitted    = "committed"
	outcomeShort        = "short"
	outcomeInvalid      = "invalid_quota"
	outcomeInsufficient = "insufficient_pool"
	outcomeError        = "error"
)

// Metrics groups the collectors exported by the coordinator.
type Metrics struct {
	requests        *prometheus.CounterVec
	lockWait        prometheus.Histogram
	recycles        prometheus.Counter
	conflictRetries prometheus.Counter
}

// NewMetrics registers allocation collectors on reg. A nil reg yields
// unregistered collectors, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_requests_total",
			Help: "Allocation requests by exhaustion policy and outcome.",
		}, []string{"policy", "outcome"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "allocation_lock_wait_seconds",
			Help:    "Time spent waiting for the per-quiz lock.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		recycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocation_recycles_total",
			Help: "Generations started by the recycle policy or a manual reset.",
		}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocation_conflict_retries_total",
			Help: "Allocation transactions retried after a concurrent modification.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.lockWait, m.recycles, m.conflictRetries)
	}
	return m
}

func (m *Metrics) observe(policy Policy, outcome string) {
	m.requests.WithLabelValues(string(policy), outcome).Inc()
}
