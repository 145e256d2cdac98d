package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/pgfleet/pkg/config"
	"github.com/dd0wney/pgfleet/pkg/dcs"
	"github.com/dd0wney/pgfleet/pkg/logging"
	"github.com/dd0wney/pgfleet/pkg/metrics"
	"github.com/dd0wney/pgfleet/pkg/probe"
	"github.com/dd0wney/pgfleet/pkg/proxy"
	"github.com/dd0wney/pgfleet/pkg/topology"
)

// StoreAPI is the consensus-store surface the controller mutates.
type StoreAPI interface {
	Members(ctx context.Context) (map[string]string, error)
	RemoveMember(ctx context.Context, id string) error
	GetConfig(ctx context.Context, localOnly bool) (*dcs.ConfigBlob, error)
	SetConfig(ctx context.Context, localOnly bool, blob *dcs.ConfigBlob) error
}

// AgentCtl is the agent control surface the controller drives.
type AgentCtl interface {
	Reinit(ctx context.Context, addr string) error
	Switchover(ctx context.Context, addr string) error
}

// Controller exposes the topology-changing membership operations. Every
// operation resolves topology fresh immediately before acting; no cached
// view survives across calls. A failover racing a mutation is an accepted
// operational risk mitigated by re-running the status check, since no
// cross-node lock exists at this layer.
type Controller struct {
	cfg      config.Config
	resolver topology.Resolver
	prober   probe.Prober
	store    StoreAPI
	ctl      AgentCtl
	editor   proxy.ConfigEditor
	services proxy.ServiceManager

	reg *metrics.Registry
	// sleep is swapped out in tests to avoid real promote-poll waits.
	sleep func(time.Duration)
}

// NewController assembles a Controller. Collaborators not applicable to
// the configured role may be nil (e.g. the proxy editor on database nodes).
func NewController(cfg config.Config, resolver topology.Resolver, prober probe.Prober,
	store StoreAPI, ctl AgentCtl, editor proxy.ConfigEditor, services proxy.ServiceManager) *Controller {
	return &Controller{
		cfg:      cfg,
		resolver: resolver,
		prober:   prober,
		store:    store,
		ctl:      ctl,
		editor:   editor,
		services: services,
		reg:      metrics.DefaultRegistry(),
		sleep:    time.Sleep,
	}
}

func (c *Controller) record(op string, err error) error {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrNotAMember),
		errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrLastReplica),
		errors.Is(err, ErrCannotRemovePrimary), errors.Is(err, ErrCannotReinitPrimary),
		errors.Is(err, ErrAlreadyPrimary), errors.Is(err, ErrWrongRole),
		errors.Is(err, ErrNodeNotResponding):
		result = "rejected"
	default:
		result = "error"
	}
	if c.reg != nil {
		c.reg.RecordMembershipOp(op, result)
	}
	return err
}

// AddNode adds a database node to the client-side proxy backend table and
// restarts the dependent services. Database nodes join the cluster at
// install time, so the database role rejects this operation.
func (c *Controller) AddNode(ctx context.Context, addr string) error {
	return c.record("add", c.addNode(ctx, addr))
}

func (c *Controller) addNode(ctx context.Context, addr string) error {
	if c.cfg.Role == config.RoleDatabase {
		return fmt.Errorf("%w: database nodes are added to the cluster at install time", ErrWrongRole)
	}

	primary, replicas, err := c.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if addr == primary || contains(replicas, addr) {
		return fmt.Errorf("%w: %s", ErrAlreadyMember, addr)
	}
	if c.prober.Agent(ctx, addr) == nil {
		return fmt.Errorf("%w: %s, ensure the cluster management agent is installed and running", ErrNodeNotResponding, addr)
	}

	opID := uuid.NewString()
	logging.L().Info().Str("op", opID).Str("addr", addr).Msg("cluster: updating proxy configuration")
	if err := c.editor.AppendBackend(addr); err != nil {
		return err
	}
	return c.restartDependents(ctx, opID)
}

// RemoveNode removes a replica from the cluster. On database nodes this
// drops the consensus member and rewrites the persisted access-control
// list; on client nodes it removes the proxy backend entry.
func (c *Controller) RemoveNode(ctx context.Context, addr string) error {
	return c.record("remove", c.removeNode(ctx, addr))
}

func (c *Controller) removeNode(ctx context.Context, addr string) error {
	primary, replicas, err := c.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if len(replicas) < 2 {
		return fmt.Errorf("%w: add a new replica before removing this node", ErrLastReplica)
	}
	if addr == primary {
		return fmt.Errorf("%w: move the primary to another node first", ErrCannotRemovePrimary)
	}

	opID := uuid.NewString()
	if c.cfg.Role == config.RoleDatabase {
		members, err := c.store.Members(ctx)
		if err != nil {
			return err
		}
		id, ok := members[addr]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, addr)
		}

		logging.L().Info().Str("op", opID).Str("addr", addr).Str("member", id).
			Msg("cluster: removing consensus member")
		if err := c.store.RemoveMember(ctx, id); err != nil {
			return err
		}

		logging.L().Info().Str("op", opID).Str("addr", addr).
			Msg("cluster: removing node from access-control list")
		blob, err := c.store.GetConfig(ctx, true)
		if err != nil {
			return err
		}
		blob.SetPgHba(dcs.RemoveNodeEntries(blob.PgHba(), addr))
		if err := c.store.SetConfig(ctx, true, blob); err != nil {
			return err
		}
		logging.L().Info().Str("op", opID).Str("addr", addr).Msg("cluster: node removed")
		return nil
	}

	logging.L().Info().Str("op", opID).Str("addr", addr).Msg("cluster: updating proxy configuration")
	if err := c.editor.RemoveBackend(addr); err != nil {
		return err
	}
	return c.restartDependents(ctx, opID)
}

// ReinitNode discards and rebuilds a replica's data through the agent. The
// resync itself is asynchronous; this returns once the agent accepts the
// command.
func (c *Controller) ReinitNode(ctx context.Context, addr string) error {
	return c.record("reinit", c.reinitNode(ctx, addr))
}

func (c *Controller) reinitNode(ctx context.Context, addr string) error {
	primary, replicas, err := c.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if addr == primary {
		return fmt.Errorf("%w: %s", ErrCannotReinitPrimary, addr)
	}
	if !contains(replicas, addr) {
		return fmt.Errorf("%w: %s", ErrNotAMember, addr)
	}
	if c.cfg.Role != config.RoleDatabase {
		return fmt.Errorf("%w: reinitialize must run on a database node", ErrWrongRole)
	}

	logging.L().Info().Str("addr", addr).Msg("cluster: reinitializing node")
	if err := c.ctl.Reinit(ctx, addr); err != nil {
		return err
	}
	logging.L().Info().Str("addr", addr).Msg("cluster: node reinitialization started")
	return nil
}

// Promote issues a forced switchover naming addr as candidate, then polls
// the resolved topology until the primary changes or the poll budget runs
// out. A timeout is reported as a warning rather than an error: the
// switchover may have completed and the primary changed again.
func (c *Controller) Promote(ctx context.Context, addr string) error {
	return c.record("promote", c.promote(ctx, addr))
}

func (c *Controller) promote(ctx context.Context, addr string) error {
	primary, replicas, err := c.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if addr == primary {
		return fmt.Errorf("%w: %s", ErrAlreadyPrimary, addr)
	}
	if !contains(replicas, addr) {
		return fmt.Errorf("%w: %s", ErrNotAMember, addr)
	}
	if c.cfg.Role != config.RoleDatabase {
		return fmt.Errorf("%w: promote must run on a database node", ErrWrongRole)
	}

	logging.L().Info().Str("addr", addr).Msg("cluster: changing primary")
	if err := c.ctl.Switchover(ctx, addr); err != nil {
		return err
	}

	for poll := 0; poll < config.PromotePolls; poll++ {
		if c.reg != nil {
			c.reg.PromotePollsTotal.Inc()
		}
		current, _, err := c.resolver.Resolve(ctx)
		if err == nil && current == addr {
			logging.L().Info().Str("addr", addr).Msg("cluster: primary changed")
			return nil
		}
		logging.L().Info().Str("addr", addr).Str("current", current).
			Msg("cluster: waiting for primary to change")
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.sleep(config.PromotePollPause)
	}

	logging.L().Warn().Str("addr", addr).
		Msg("cluster: primary change not confirmed; it may have completed and changed again, check cluster health before retrying")
	return nil
}

// EnsureMemberAccess makes sure the persisted access-control list carries
// entries for addr, adding them when a node joins an already-secured
// cluster. Database role only.
func (c *Controller) EnsureMemberAccess(ctx context.Context, addr string) error {
	if c.cfg.Role != config.RoleDatabase {
		return fmt.Errorf("%w: access-control updates must run on a database node", ErrWrongRole)
	}
	blob, err := c.store.GetConfig(ctx, false)
	if err != nil {
		return err
	}
	hba := blob.PgHba()
	if dcs.HasNodeEntry(hba, addr) {
		return nil
	}
	blob.SetPgHba(dcs.AddNodeEntries(hba, addr))
	return c.store.SetConfig(ctx, false, blob)
}

func (c *Controller) restartDependents(ctx context.Context, opID string) error {
	for _, service := range c.cfg.Proxy.DependentServices {
		logging.L().Info().Str("op", opID).Str("service", service).Msg("cluster: restarting service")
		if err := c.services.Restart(ctx, service); err != nil {
			return err
		}
	}
	return nil
}
