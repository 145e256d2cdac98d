// Package metrics exposes prometheus instrumentation for pgfleet.
package metrics

import (
	"time"
)

// RecordProbe records one probe attempt and whether the node answered.
func (r *Registry) RecordProbe(kind string, reachable bool, duration time.Duration) {
	r.ProbesTotal.WithLabelValues(kind).Inc()
	r.ProbeDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if !reachable {
		r.ProbeFailuresTotal.WithLabelValues(kind).Inc()
	}
}

// RecordEvaluation records the outcome of a full cluster status query.
func (r *Registry) RecordEvaluation(verdict string, totalNodes, aliveNodes, syncReplicas int, statusCode int, duration time.Duration) {
	r.EvaluationsTotal.WithLabelValues(verdict).Inc()
	r.EvaluationDuration.Observe(duration.Seconds())
	r.ClusterStatus.Set(float64(statusCode))
	r.ClusterNodesTotal.Set(float64(totalNodes))
	r.ClusterAliveNodesTotal.Set(float64(aliveNodes))
	r.ClusterSyncReplicasTotal.Set(float64(syncReplicas))
}

// RecordMembershipOp records one membership mutation attempt.
func (r *Registry) RecordMembershipOp(op, result string) {
	r.MembershipOpsTotal.WithLabelValues(op, result).Inc()
}
