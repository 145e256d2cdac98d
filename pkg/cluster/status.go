// Package cluster converts raw node probes into normalized status records,
// evaluates overall cluster health, and drives topology-changing membership
// operations with safety preconditions.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/pgfleet/pkg/metrics"
	"github.com/dd0wney/pgfleet/pkg/probe"
	"github.com/dd0wney/pgfleet/pkg/topology"
)

// Aggregator turns per-node probe results into NodeStatus records.
type Aggregator struct {
	Prober probe.Prober
}

// StatusFor probes addr and builds its status record. The role is the
// caller's expectation from resolved topology, not re-derived from the
// agent payload: the payload's own role claim is only consulted later for
// split-brain detection. Leaders report their write position, replicas
// their replayed position.
func (a *Aggregator) StatusFor(ctx context.Context, addr string, role NodeRole) *NodeStatus {
	agent := a.Prober.Agent(ctx, addr)
	cons := a.Prober.Consensus(ctx, addr)

	node := &NodeStatus{Addr: addr, Role: role, ConsensusState: ConsensusDead}

	if agent != nil {
		node.Raw = agent
		pos := agent.XLog.ReplayedLocation
		if role == RoleLeader {
			pos = agent.XLog.Location
		}
		node.LogPosition = &pos
		timeline := agent.Timeline
		node.Timeline = &timeline
		if agent.State == "running" {
			node.Alive = true
		} else {
			node.addError("Node not running")
		}
	} else {
		node.Role = RoleUnknown
		node.addError("Could not retrieve DB status")
	}

	if cons != nil {
		node.ConsensusState = cons.State
	} else {
		node.addError("Could not retrieve etcd status")
	}

	return node
}

// Checker runs the full status query: resolve topology, aggregate node
// statuses and evaluate the verdict.
type Checker struct {
	Resolver   topology.Resolver
	Aggregator *Aggregator

	reg *metrics.Registry
}

// NewChecker wires a Checker against the default metrics registry.
func NewChecker(resolver topology.Resolver, prober probe.Prober) *Checker {
	return &Checker{
		Resolver:   resolver,
		Aggregator: &Aggregator{Prober: prober},
		reg:        metrics.DefaultRegistry(),
	}
}

// ClusterStatus resolves the topology and evaluates cluster health.
// Topology is read fresh on every call.
func (c *Checker) ClusterStatus(ctx context.Context) (*Report, error) {
	start := time.Now()

	primaryAddr, replicaAddrs, err := c.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	primary := c.Aggregator.StatusFor(ctx, primaryAddr, RoleLeader)
	syncAddrs := primary.Raw.SyncReplicaAddrs()

	// Replica probes are independent and share no state, so they run
	// concurrently; results keep the resolver's ordering.
	replicas := make([]*NodeStatus, len(replicaAddrs))
	var wg sync.WaitGroup
	for i, addr := range replicaAddrs {
		role := RoleAsyncReplica
		if contains(syncAddrs, addr) {
			role = RoleSyncReplica
		}
		wg.Add(1)
		go func(i int, addr string, role NodeRole) {
			defer wg.Done()
			replicas[i] = c.Aggregator.StatusFor(ctx, addr, role)
		}(i, addr, role)
	}
	wg.Wait()

	report := Evaluate(primary, replicas)

	if c.reg != nil {
		alive := 0
		for _, n := range report.Nodes {
			if n.Alive {
				alive++
			}
		}
		c.reg.RecordEvaluation(report.Status.String(), len(report.Nodes), alive,
			len(syncAddrs), int(report.Status), time.Since(start))
	}
	return report, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
