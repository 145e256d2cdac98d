package probe

// AgentStatus is the decoded response of the HA agent REST endpoint
// (GET https://<node>:<agent-port>/). Raw JSON is decoded at the probe
// boundary; missing fields stay at their zero values.
type AgentStatus struct {
	State       string            `json:"state"`
	Role        string            `json:"role"`
	Timeline    int64             `json:"timeline"`
	XLog        XLog              `json:"xlog"`
	Replication []ReplicationInfo `json:"replication"`
}

// XLog carries the replication log offsets reported by the agent. Location
// is meaningful on the primary, ReplayedLocation on replicas.
type XLog struct {
	Location         int64 `json:"location"`
	ReplayedLocation int64 `json:"replayed_location"`
}

// ReplicationInfo is one replica connection as observed by the primary.
type ReplicationInfo struct {
	ClientAddr string `json:"client_addr"`
	SyncState  string `json:"sync_state"`
}

// SyncReplicaAddrs returns the addresses the primary currently reports as
// synchronous replicas. Only meaningful when called on the primary's status.
func (s *AgentStatus) SyncReplicaAddrs() []string {
	if s == nil {
		return nil
	}
	var addrs []string
	for _, r := range s.Replication {
		if r.SyncState == "sync" {
			addrs = append(addrs, r.ClientAddr)
		}
	}
	return addrs
}

// ReportsPrimary reports whether the node itself claims the primary role.
// Observing this on a replica is a split-brain symptom.
func (s *AgentStatus) ReportsPrimary() bool {
	return s != nil && (s.State == "master" || s.Role == "master" || s.Role == "primary")
}

// ConsensusStatus is the decoded response of the consensus store's local
// stats endpoint (GET https://<node>:<consensus-port>/v2/stats/self).
type ConsensusStatus struct {
	State string `json:"state"`
}

// Consensus store self-reported states.
const (
	StateLeader   = "StateLeader"
	StateFollower = "StateFollower"
)
