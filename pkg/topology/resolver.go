// Package topology determines the current primary address and the set of
// replica addresses of the database cluster.
//
// Two strategies exist. Database nodes ask the consensus store directly;
// client (manager) nodes observe the load balancer's backend table. Both
// hide their brittle text parsing behind the Resolver interface so the
// evaluator never sees it.
package topology

import (
	"context"
	"sort"

	"github.com/dd0wney/pgfleet/pkg/config"
	"github.com/dd0wney/pgfleet/pkg/dcs"
	"github.com/dd0wney/pgfleet/pkg/patroni"
	"github.com/dd0wney/pgfleet/pkg/proxy"
)

// Resolver resolves the cluster topology. The returned replica list never
// contains the primary address. primary is empty when no primary is
// currently known; that alone is not an error.
type Resolver interface {
	Resolve(ctx context.Context) (primary string, replicas []string, err error)
}

// StoreClient is the consensus-store surface needed for resolution.
type StoreClient interface {
	ClusterHealth(ctx context.Context) (string, error)
	Members(ctx context.Context) (map[string]string, error)
}

// PrimaryFinder looks up the current primary address, "" when unknown.
type PrimaryFinder interface {
	PrimaryAddr(ctx context.Context) (string, error)
}

// New selects the resolution strategy for the configured role.
func New(cfg config.Config, store *dcs.Client, ctl *patroni.Ctl, stats proxy.StatsReader) (Resolver, error) {
	switch cfg.Role {
	case config.RoleDatabase:
		return &ConsensusResolver{Store: store, Primary: ctl}, nil
	case config.RoleClient:
		return &ProxyResolver{Stats: stats}, nil
	default:
		return nil, ErrRoleUnsupported
	}
}

func sortedReplicas(set map[string]struct{}) []string {
	replicas := make([]string, 0, len(set))
	for addr := range set {
		replicas = append(replicas, addr)
	}
	sort.Strings(replicas)
	return replicas
}
