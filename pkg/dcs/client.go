// Package dcs wraps access to the distributed consensus store (etcd) that
// coordinates the database cluster: membership listing and removal, the
// persisted agent configuration blob, and auth detection.
//
// The store is reached through etcdctl rather than a client library because
// the deployed etcd speaks the v2 API whose member listing has no stable
// structured output; all text parsing is contained in this package.
package dcs

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dd0wney/pgfleet/pkg/config"
	"github.com/dd0wney/pgfleet/pkg/logging"
)

// Client issues consensus-store commands against one or all cluster nodes.
type Client struct {
	cfg    config.Config
	runner Runner

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewClient builds a Client. A nil runner defaults to ExecRunner.
func NewClient(cfg config.Config, runner Runner) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Client{cfg: cfg, runner: runner, sleep: time.Sleep}
}

func (c *Client) endpoints(localOnly bool) string {
	addrs := c.cfg.Nodes
	if localOnly || len(addrs) == 0 {
		addrs = []string{c.cfg.LocalAddr}
	}
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, fmt.Sprintf("https://%s:%d", addr, c.cfg.Consensus.ClientPort))
	}
	return strings.Join(parts, ",")
}

func (c *Client) credentials(username string) ([]string, error) {
	switch username {
	case "":
		return nil, nil
	case "root":
		return []string{"ETCDCTL_USERNAME=root:" + c.cfg.Consensus.RootPassword}, nil
	case "patroni":
		return []string{"ETCDCTL_USERNAME=patroni:" + c.cfg.Consensus.PatroniPassword}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedUser, username)
	}
}

func (c *Client) run(ctx context.Context, username string, localOnly bool, stdin string, command ...string) (Result, error) {
	env, err := c.credentials(username)
	if err != nil {
		return Result{}, err
	}
	args := []string{"--endpoints", c.endpoints(localOnly), "--ca-file", c.cfg.Consensus.CAPath}
	args = append(args, command...)
	return c.runner.Run(ctx, env, stdin, args...)
}

// ClusterHealth returns the raw cluster-health output. Used as the
// availability guard before topology resolution.
func (c *Client) ClusterHealth(ctx context.Context) (string, error) {
	res, err := c.run(ctx, "", true, "", "cluster-health")
	if err != nil {
		return "", fmt.Errorf("dcs: cluster-health: %w", err)
	}
	return res.Stdout, nil
}

// Expected member list output, one line per member:
//
//	abc123def: name=etcd192_0_2_1 peerURLs=https://192.0.2.1:2380 clientURLs=https://192.0.2.1:2379 isLeader=false
//
// The IP is taken from peerURLs; matching stops at ":<peer-port> clientURLs"
// so an IPv6 address with embedded colons still parses.
var memberLine = regexp.MustCompile(`^(?P<id>[^:]+):.*peerURLs=https://(?P<ip>.+):(?P<port>\d+) clientURLs`)

// Members returns a map of member address to consensus-store member id.
func (c *Client) Members(ctx context.Context) (map[string]string, error) {
	res, err := c.run(ctx, "", false, "", "member", "list")
	if err != nil {
		return nil, fmt.Errorf("dcs: member list: %w", err)
	}
	members := make(map[string]string)
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := memberLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedMemberList, line)
		}
		members[m[2]] = m[1]
	}
	return members, nil
}

// RemoveMember removes the member with the given id, talking only to the
// local endpoint so the command keeps working while the cluster shrinks.
func (c *Client) RemoveMember(ctx context.Context, id string) error {
	res, err := c.run(ctx, "root", true, "", "member", "remove", id)
	if err != nil {
		return fmt.Errorf("dcs: member remove: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("dcs: member remove exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// GetConfig reads the persisted agent configuration blob.
func (c *Client) GetConfig(ctx context.Context, localOnly bool) (*ConfigBlob, error) {
	res, err := c.run(ctx, "root", localOnly, "", "get", c.cfg.Consensus.ConfigKey)
	if err != nil {
		return nil, fmt.Errorf("dcs: get config: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("dcs: get config exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	blob, err := ParseConfigBlob([]byte(res.Stdout))
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// SetConfig writes the configuration blob back wholesale.
func (c *Client) SetConfig(ctx context.Context, localOnly bool, blob *ConfigBlob) error {
	data, err := blob.Encode()
	if err != nil {
		return err
	}
	res, err := c.run(ctx, "root", localOnly, "", "set", c.cfg.Consensus.ConfigKey, string(data))
	if err != nil {
		return fmt.Errorf("dcs: set config: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("dcs: set config exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// RequiresAuth detects whether the store has authentication enabled by
// listing the root key without credentials. Retries briefly so a cluster
// that is still electing gets a chance to answer; exhaustion means the
// store is not up, which on the first node of a new cluster is expected.
func (c *Client) RequiresAuth(ctx context.Context) (bool, error) {
	for attempt := 0; attempt < config.AuthProbeAttempts; attempt++ {
		res, err := c.run(ctx, "", false, "", "ls", "/")
		if err != nil {
			return false, fmt.Errorf("dcs: auth check: %w", err)
		}
		switch {
		case res.ExitCode == 0:
			// Listing succeeded without credentials.
			return false, nil
		case res.ExitCode == 4 && strings.Contains(res.Stderr, "user authentication"):
			return true, nil
		}
		logging.L().Debug().Str("stderr", strings.TrimSpace(res.Stderr)).Msg("dcs: store connection error")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		c.sleep(config.AuthProbeBackoff)
	}
	return false, ErrStoreNotAvailable
}

// MemberName derives the consensus-store member name for a node address.
func MemberName(addr string) string {
	return "etcd" + strings.ReplaceAll(addr, ".", "_")
}
