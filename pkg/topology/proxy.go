package topology

import (
	"context"
	"fmt"

	"github.com/dd0wney/pgfleet/pkg/logging"
	"github.com/dd0wney/pgfleet/pkg/proxy"
)

// ProxyResolver resolves topology from the load balancer's live backend
// table. Used on client (manager) nodes, which cannot reach the consensus
// store directly.
type ProxyResolver struct {
	Stats proxy.StatsReader
}

func (r *ProxyResolver) Resolve(ctx context.Context) (string, []string, error) {
	servers, err := r.Stats.Servers(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}

	primary := ""
	replicaSet := make(map[string]struct{})
	for _, srv := range servers {
		addr, ok := srv.Addr()
		if !ok {
			continue
		}
		if srv.Status == "UP" {
			if primary != "" && primary != addr {
				// Two UP backends mid-failover. Keep the first; the health
				// evaluation surfaces the anomaly.
				logging.L().Warn().Str("primary", primary).Str("extra", addr).
					Msg("topology: multiple backends report UP")
				replicaSet[addr] = struct{}{}
				continue
			}
			primary = addr
		} else {
			replicaSet[addr] = struct{}{}
		}
	}
	delete(replicaSet, primary)
	return primary, sortedReplicas(replicaSet), nil
}
