package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Probe metrics
	ProbesTotal        *prometheus.CounterVec
	ProbeFailuresTotal *prometheus.CounterVec
	ProbeDuration      *prometheus.HistogramVec

	// Cluster status metrics
	ClusterStatus            prometheus.Gauge
	ClusterNodesTotal        prometheus.Gauge
	ClusterAliveNodesTotal   prometheus.Gauge
	ClusterSyncReplicasTotal prometheus.Gauge
	EvaluationsTotal         *prometheus.CounterVec
	EvaluationDuration       prometheus.Histogram

	// Membership operation metrics
	MembershipOpsTotal *prometheus.CounterVec
	PromotePollsTotal  prometheus.Counter

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry, creating it on first use.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a fresh metrics registry backed by its own
// prometheus.Registry. Tests use this to avoid duplicate registration.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initProbeMetrics()
	r.initClusterMetrics()
	r.initMembershipMetrics()
	return r
}

// Registerer exposes the underlying prometheus registry for HTTP handlers.
func (r *Registry) Registerer() *prometheus.Registry {
	return r.registry
}

// Gatherer exposes the registry for the scrape endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
