package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	stepLogin = "login"
	stepQuery = "query"
)

// Metrics records orchestration outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
}

// NewMetrics creates the bridge collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livelink_bridge_requests_total",
			Help: "Search requests by output format and outcome",
		}, []string{"format", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livelink_bridge_backend_duration_seconds",
			Help:    "Livelink call latency by step",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.backendDuration)
	}
	return m
}

func (m *Metrics) observeRequest(format Format, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(format), outcome).Inc()
}

func (m *Metrics) observeBackend(step string, fn func() error) error {
	if m == nil {
		return fn()
	}
	start := time.Now()
	err := fn()
	m.backendDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	return err
}
