package health

import (
	"context"
	"time"

	"github.com/dd0wney/pgfleet/pkg/cluster"
	"github.com/dd0wney/pgfleet/pkg/config"
)

// StatusQuerier is the slice of the cluster checker the health checks use.
type StatusQuerier interface {
	ClusterStatus(ctx context.Context) (*cluster.Report, error)
}

// ClusterCheck runs the full cluster evaluation and maps its verdict onto
// a health status. DEGRADED stays serving; DOWN reports unhealthy.
func ClusterCheck(checker StatusQuerier) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "cluster",
			Details: make(map[string]any),
		}

		// A full status query probes every node; give it more than one
		// probe window.
		ctx, cancel := context.WithTimeout(context.Background(), 3*config.ProbeTimeout)
		defer cancel()

		report, err := checker.ClusterStatus(ctx)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		alive := 0
		for _, node := range report.Nodes {
			if node.Alive {
				alive++
			}
		}
		check.Details["nodes"] = len(report.Nodes)
		check.Details["alive"] = alive
		if len(report.Diagnostics) > 0 {
			check.Details["diagnostics"] = report.Diagnostics
		}

		switch report.Status {
		case cluster.Healthy:
			check.Status = StatusHealthy
			check.Message = "Cluster healthy"
		case cluster.Degraded:
			check.Status = StatusDegraded
			check.Message = "Cluster degraded"
		default:
			check.Status = StatusUnhealthy
			check.Message = "Cluster down"
		}
		return check
	}
}

// ReadyCheck is the readiness variant of ClusterCheck: a degraded cluster
// still serves, so only DOWN (or an unanswerable query) reports unhealthy.
func ReadyCheck(checker StatusQuerier) CheckFunc {
	inner := ClusterCheck(checker)
	return func() Check {
		check := inner()
		if check.Status == StatusDegraded {
			check.Status = StatusHealthy
		}
		return check
	}
}

// StoreCheck reports whether the local consensus store answers its health
// command.
func StoreCheck(healthFunc func(ctx context.Context) error) CheckFunc {
	return func() Check {
		check := Check{
			Name: "consensus-store",
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.ProbeTimeout)
		defer cancel()

		if err := healthFunc(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Store reachable"
		}
		return check
	}
}

// ProcessCheck creates a liveness check that always reports healthy while
// the process can schedule it.
func ProcessCheck() CheckFunc {
	started := time.Now()
	return func() Check {
		return Check{
			Name:    "process",
			Status:  StatusHealthy,
			Details: map[string]any{"uptime_seconds": time.Since(started).Seconds()},
		}
	}
}
