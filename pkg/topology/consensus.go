package topology

import (
	"context"
	"fmt"
	"strings"

	"github.com/dd0wney/pgfleet/pkg/logging"
)

// ConsensusResolver resolves topology from the consensus store's membership
// list plus the agent's recorded primary connection string. Used on nodes
// running the database role.
type ConsensusResolver struct {
	Store   StoreClient
	Primary PrimaryFinder
}

func (r *ConsensusResolver) Resolve(ctx context.Context) (string, []string, error) {
	health, err := r.Store.ClusterHealth(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}
	if strings.Contains(health, "cluster is unavailable") ||
		strings.Contains(health, "failed to list members") {
		return "", nil, fmt.Errorf("%w: consensus store not responding on this node, retry on another cluster node", ErrTopologyUnavailable)
	}

	members, err := r.Store.Members(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}

	primary, err := r.Primary.PrimaryAddr(ctx)
	if err != nil {
		// A cluster without a resolvable primary is still a cluster;
		// callers handle the unknown primary explicitly.
		logging.L().Warn().Err(err).Msg("topology: primary DSN lookup failed")
		primary = ""
	}

	replicaSet := make(map[string]struct{}, len(members))
	for addr := range members {
		if addr != primary {
			replicaSet[addr] = struct{}{}
		}
	}
	return primary, sortedReplicas(replicaSet), nil
}
