package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initProbeMetrics() {
	r.ProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgfleet_probes_total",
			Help: "Total number of node status probes",
		},
		[]string{"kind"}, // agent, consensus
	)

	r.ProbeFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgfleet_probe_failures_total",
			Help: "Total number of probes that found the node unreachable",
		},
		[]string{"kind"},
	)

	r.ProbeDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgfleet_probe_duration_seconds",
			Help:    "Probe round-trip latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"kind"},
	)
}

func (r *Registry) initClusterMetrics() {
	r.ClusterStatus = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pgfleet_cluster_status",
			Help: "Cluster verdict (0=healthy, 1=degraded, 2=down)",
		},
	)

	r.ClusterNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pgfleet_cluster_nodes_total",
			Help: "Total number of nodes in the cluster",
		},
	)

	r.ClusterAliveNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pgfleet_cluster_alive_nodes_total",
			Help: "Number of nodes whose agent reports the database running",
		},
	)

	r.ClusterSyncReplicasTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pgfleet_cluster_sync_replicas_total",
			Help: "Number of replicas the primary reports as synchronous",
		},
	)

	r.EvaluationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgfleet_evaluations_total",
			Help: "Total number of cluster health evaluations",
		},
		[]string{"verdict"}, // healthy, degraded, down
	)

	r.EvaluationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgfleet_evaluation_duration_seconds",
			Help:    "Duration of a full status query including probes",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
	)
}

func (r *Registry) initMembershipMetrics() {
	r.MembershipOpsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgfleet_membership_ops_total",
			Help: "Total membership mutations by operation and result",
		},
		[]string{"op", "result"}, // add/remove/reinit/promote, ok/rejected/error
	)

	r.PromotePollsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pgfleet_promote_polls_total",
			Help: "Topology polls performed while waiting for a switchover",
		},
	)
}
