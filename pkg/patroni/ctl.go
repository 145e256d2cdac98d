// Package patroni drives the cluster-management agent through its control
// CLI: primary DSN lookup, forced replica reinitialization and forced
// switchover. The agent owns the actual database lifecycle; everything here
// is fire-and-forget from the caller's perspective.
package patroni

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dd0wney/pgfleet/pkg/config"
)

// Runner executes patronictl. Tests substitute a scripted fake.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner shells out to the installed patronictl.
type ExecRunner struct {
	// Command overrides the binary path, for tests.
	Command string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	name := r.Command
	if name == "" {
		name = "/opt/patroni/bin/patronictl"
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("patronictl %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Ctl wraps agent control operations for one cluster scope.
type Ctl struct {
	cfg    config.Config
	runner Runner
}

// NewCtl builds a Ctl. A nil runner defaults to ExecRunner.
func NewCtl(cfg config.Config, runner Runner) *Ctl {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Ctl{cfg: cfg, runner: runner}
}

func (c *Ctl) run(ctx context.Context, args ...string) (string, error) {
	base := []string{"-c", c.cfg.Agent.CtlConfigPath}
	return c.runner.Run(ctx, append(base, args...)...)
}

// PrimaryAddr queries the agent for the primary connection DSN and returns
// the host it names. The response has the form "host=<ip> port=<port>"; an
// empty or unparseable response yields "" without an error, since a cluster
// can legitimately have no primary mid-failover.
func (c *Ctl) PrimaryAddr(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "dsn")
	if err != nil {
		return "", fmt.Errorf("patroni: dsn query: %w", err)
	}
	return ParseDSNHost(out), nil
}

// ParseDSNHost extracts the host from a keyword/value connection string.
func ParseDSNHost(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return ""
	}
	return cfg.Host
}

// Reinit discards and rebuilds the data of the given node. The underlying
// reinitialization is asynchronous at the agent level; this call returns as
// soon as the agent accepts it.
func (c *Ctl) Reinit(ctx context.Context, addr string) error {
	_, err := c.run(ctx, "reinit", "--force", c.cfg.Agent.Scope, MemberName(addr))
	if err != nil {
		return fmt.Errorf("patroni: reinit %s: %w", addr, err)
	}
	return nil
}

// Switchover asks the agent to move the primary role to the given node.
func (c *Ctl) Switchover(ctx context.Context, addr string) error {
	_, err := c.run(ctx, "switchover", "--force", "--candidate", MemberName(addr))
	if err != nil {
		return fmt.Errorf("patroni: switchover to %s: %w", addr, err)
	}
	return nil
}

// MemberName derives the agent member name for a node address.
func MemberName(addr string) string {
	return "pg" + strings.ReplaceAll(addr, ".", "_")
}
