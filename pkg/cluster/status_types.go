package cluster

import (
	"github.com/dd0wney/pgfleet/pkg/probe"
)

// NodeRole is the role a node is expected to play in the resolved topology.
type NodeRole string

const (
	RoleLeader       NodeRole = "leader"
	RoleSyncReplica  NodeRole = "sync_replica"
	RoleAsyncReplica NodeRole = "async_replica"
	RoleUnknown      NodeRole = "unknown"
)

// ConsensusDead is the consensus state recorded for a node whose store
// endpoint did not answer.
const ConsensusDead = "dead"

// NodeStatus is the normalized status record for one cluster member.
// Created fresh on every status query and never persisted; the consensus
// store and the agents remain the source of truth.
type NodeStatus struct {
	Addr  string   `json:"node_ip"`
	Role  NodeRole `json:"state"`
	Alive bool     `json:"alive"`
	// LogPosition is the replication log offset: the write position on the
	// leader, the replayed position on replicas. Nil when unknown.
	LogPosition *int64 `json:"log_location"`
	Timeline    *int64 `json:"timeline"`
	// ConsensusState is the store's self-reported state for this node
	// (StateLeader/StateFollower), or "dead" when unreachable.
	ConsensusState string `json:"etcd_state"`
	// Errors accumulates diagnostics; entries are only ever appended
	// during an evaluation.
	Errors []string `json:"errors"`

	// Raw keeps the undigested agent response for checks that need it
	// (sync replica derivation, split-brain detection).
	Raw *probe.AgentStatus `json:"-"`
}

func (n *NodeStatus) addError(msg string) {
	n.Errors = append(n.Errors, msg)
}

// HasError reports whether a diagnostic was recorded on this node.
func (n *NodeStatus) HasError(msg string) bool {
	for _, e := range n.Errors {
		if e == msg {
			return true
		}
	}
	return false
}

// Verdict is the overall cluster health classification. The order is
// total: a worse verdict always dominates a better one.
type Verdict int

const (
	Healthy Verdict = iota
	Degraded
	Down
)

func (v Verdict) String() string {
	switch v {
	case Healthy:
		return "HEALTHY"
	case Degraded:
		return "DEGRADED"
	case Down:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Report pairs the cluster verdict with the node statuses used to derive
// it, plus cluster-level diagnostics that belong to no single node.
type Report struct {
	Status      Verdict       `json:"status"`
	Nodes       []*NodeStatus `json:"nodes"`
	Diagnostics []string      `json:"diagnostics,omitempty"`
}
