package cluster

import (
	"fmt"

	"github.com/dd0wney/pgfleet/pkg/logging"
	"github.com/dd0wney/pgfleet/pkg/probe"
)

// lagWarnMiB is the asynchronous replication lag above which a diagnostic
// is recorded. Informational only; lag alone never changes the verdict.
const lagWarnMiB = 2.0

// Evaluate applies the health classification over a primary status and its
// replica statuses. The verdict starts at Healthy and is only ever raised;
// no later check can lower what an earlier one established.
//
// When the primary address was never resolved, the replica set stands in
// for the full node list and every comparison against the missing primary
// log position or timeline is skipped as indeterminate.
func Evaluate(primary *NodeStatus, replicas []*NodeStatus) *Report {
	report := &Report{Status: Healthy}
	raise := func(v Verdict) {
		if v > report.Status {
			report.Status = v
		}
	}
	diag := func(format string, args ...any) {
		report.Diagnostics = append(report.Diagnostics, fmt.Sprintf(format, args...))
	}

	memberCount := 1 + len(replicas)
	majority := memberCount / 2

	var primaryLog, primaryTimeline *int64
	if primary.Raw != nil {
		pos := primary.Raw.XLog.Location
		primaryLog = &pos
		timeline := primary.Raw.Timeline
		primaryTimeline = &timeline
	}
	syncAddrs := primary.Raw.SyncReplicaAddrs()

	nodes := append([]*NodeStatus{primary}, replicas...)
	if primary.Addr == "" {
		logging.L().Error().Msg("cluster: no primary found")
		diag("no primary found")
		raise(Down)
		nodes = replicas
	}
	report.Nodes = nodes

	// Primary checks.
	if !primary.Alive {
		raise(Down)
	}
	if len(syncAddrs) == 0 {
		// Writes are not acknowledged without a synchronous replica under
		// the cluster's synchronous replication policy.
		logging.L().Error().Msg("cluster: no synchronous replicas found")
		diag("no synchronous replicas found")
		raise(Down)
	}

	// Consensus store checks.
	followers, leaders := 0, 0
	for _, node := range nodes {
		switch node.ConsensusState {
		case probe.StateFollower:
			followers++
		case probe.StateLeader:
			leaders++
		}
	}
	if leaders != 1 {
		logging.L().Error().Int("leaders", leaders).Msg("cluster: consensus lost")
		diag("expected 1 consensus leader, found %d, cluster consensus lost", leaders)
		raise(Down)
	}
	if followers < majority {
		logging.L().Error().Msg("cluster: insufficient consensus followers")
		diag("insufficient consensus followers found, cluster consensus lost")
		raise(Down)
	} else if followers < len(replicas) {
		logging.L().Warn().Msg("cluster: missing one or more consensus followers")
		diag("missing one or more consensus followers")
		raise(Degraded)
	}

	// Per-replica checks.
	for _, replica := range replicas {
		if replica.Role == RoleSyncReplica {
			// A sync replica that cannot prove it is caught up blocks
			// writes, including one whose position is unknown.
			if primaryLog != nil && (replica.LogPosition == nil || *replica.LogPosition < *primaryLog) {
				logging.L().Error().Str("replica", replica.Addr).
					Msg("cluster: synchronous replica not in sync, writes will be blocked")
				replica.addError("Out of sync")
				raise(Down)
			}
		} else {
			if primaryTimeline != nil && (replica.Timeline == nil || *replica.Timeline != *primaryTimeline) {
				logging.L().Warn().Str("replica", replica.Addr).
					Msg("cluster: asynchronous replica not on primary timeline")
				replica.addError("Out of sync")
				raise(Degraded)
			}
			// Lag is indeterminate when either position is unknown; it is
			// skipped rather than treated as zero.
			if primaryLog != nil && replica.LogPosition != nil {
				lagMiB := float64(*primaryLog-*replica.LogPosition) / 1024.0 / 1024.0
				if lagMiB > lagWarnMiB {
					logging.L().Warn().Str("replica", replica.Addr).
						Msg("cluster: asynchronous replica lagging excessively")
					replica.addError(fmt.Sprintf("Lag: %.2fMiB", lagMiB))
				}
			}
		}

		if replica.Raw.ReportsPrimary() {
			// Only possible when a failover happens while the check runs.
			// Re-running the status query is the remediation, so this is
			// flagged without raising the verdict.
			logging.L().Error().Str("replica", replica.Addr).
				Msg("cluster: MULTIPLE PRIMARIES DETECTED, re-run this status check")
			replica.addError("EXTRA MASTER")
		}
	}

	return report
}
