package dcs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/pgfleet/pkg/config"
)

// scriptRunner replays canned results and records every invocation; the
// last result repeats once the script runs out.
type scriptRunner struct {
	results []Result
	err     error
	calls   [][]string
	envs    [][]string
}

func (r *scriptRunner) Run(ctx context.Context, env []string, stdin string, args ...string) (Result, error) {
	r.calls = append(r.calls, args)
	r.envs = append(r.envs, env)
	if r.err != nil {
		return Result{}, r.err
	}
	i := len(r.calls) - 1
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i], nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LocalAddr = "192.0.2.1"
	cfg.Nodes = []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"}
	cfg.Consensus.RootPassword = "secret"
	return cfg
}

func newTestClient(runner *scriptRunner) *Client {
	c := NewClient(testConfig(), runner)
	c.sleep = func(time.Duration) {}
	return c
}

func TestMembersParsesMemberList(t *testing.T) {
	out := strings.Join([]string{
		"abc123: name=etcd192_0_2_1 peerURLs=https://192.0.2.1:2380 clientURLs=https://192.0.2.1:2379 isLeader=true",
		"def456: name=etcd192_0_2_2 peerURLs=https://192.0.2.2:2380 clientURLs=https://192.0.2.2:2379 isLeader=false",
		"",
	}, "\n")
	runner := &scriptRunner{results: []Result{{Stdout: out}}}

	members, err := newTestClient(runner).Members(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members["192.0.2.1"] != "abc123" || members["192.0.2.2"] != "def456" {
		t.Errorf("wrong member map: %v", members)
	}
}

func TestMembersMalformedLine(t *testing.T) {
	runner := &scriptRunner{results: []Result{{Stdout: "garbage output\n"}}}

	_, err := newTestClient(runner).Members(context.Background())
	if !errors.Is(err, ErrMalformedMemberList) {
		t.Fatalf("expected ErrMalformedMemberList, got %v", err)
	}
}

func TestEndpointsAllNodes(t *testing.T) {
	runner := &scriptRunner{results: []Result{{Stdout: ""}}}
	client := newTestClient(runner)

	if _, err := client.Members(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := runner.calls[0]
	want := "https://192.0.2.1:2379,https://192.0.2.2:2379,https://192.0.2.3:2379"
	if args[0] != "--endpoints" || args[1] != want {
		t.Errorf("wrong endpoints: %v", args[:2])
	}
	if args[2] != "--ca-file" {
		t.Errorf("expected ca-file flag, got %v", args[2])
	}
}

func TestRemoveMemberUsesLocalEndpointAndRootUser(t *testing.T) {
	runner := &scriptRunner{results: []Result{{}}}
	client := newTestClient(runner)

	if err := client.RemoveMember(context.Background(), "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := runner.calls[0]
	if args[1] != "https://192.0.2.1:2379" {
		t.Errorf("member removal must talk to the local endpoint only, got %v", args[1])
	}
	env := runner.envs[0]
	if len(env) != 1 || env[0] != "ETCDCTL_USERNAME=root:secret" {
		t.Errorf("expected root credentials, got %v", env)
	}
}

func TestRemoveMemberNonZeroExit(t *testing.T) {
	runner := &scriptRunner{results: []Result{{ExitCode: 1, Stderr: "no such member"}}}

	err := newTestClient(runner).RemoveMember(context.Background(), "abc123")
	if err == nil || !strings.Contains(err.Error(), "no such member") {
		t.Fatalf("expected exit failure, got %v", err)
	}
}

func TestGetConfigRoundTrip(t *testing.T) {
	runner := &scriptRunner{results: []Result{
		{Stdout: `{"postgresql":{"pg_hba":["hostssl all all 0.0.0.0/0 md5"]},"ttl":30}`},
	}}
	client := newTestClient(runner)

	blob, err := client.GetConfig(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hba := blob.PgHba()
	if len(hba) != 1 || hba[0] != "hostssl all all 0.0.0.0/0 md5" {
		t.Errorf("wrong hba lines: %v", hba)
	}

	if err := client.SetConfig(context.Background(), true, blob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	setArgs := runner.calls[1]
	if setArgs[4] != "set" || setArgs[5] != client.cfg.Consensus.ConfigKey {
		t.Errorf("wrong set invocation: %v", setArgs)
	}
	if !strings.Contains(setArgs[6], `"ttl":30`) {
		t.Errorf("untouched fields must survive the round trip: %s", setArgs[6])
	}
}

func TestRequiresAuthDisabled(t *testing.T) {
	runner := &scriptRunner{results: []Result{{ExitCode: 0}}}

	auth, err := newTestClient(runner).RequiresAuth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth {
		t.Error("expected auth disabled")
	}
}

func TestRequiresAuthEnabled(t *testing.T) {
	runner := &scriptRunner{results: []Result{
		{ExitCode: 4, Stderr: "Error: 110: The request requires user authentication"},
	}}

	auth, err := newTestClient(runner).RequiresAuth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !auth {
		t.Error("expected auth enabled")
	}
}

func TestRequiresAuthRetriesUntilExhausted(t *testing.T) {
	runner := &scriptRunner{results: []Result{{ExitCode: 1, Stderr: "connection refused"}}}

	_, err := newTestClient(runner).RequiresAuth(context.Background())
	if !errors.Is(err, ErrStoreNotAvailable) {
		t.Fatalf("expected ErrStoreNotAvailable, got %v", err)
	}
	if len(runner.calls) != config.AuthProbeAttempts {
		t.Errorf("expected %d attempts, got %d", config.AuthProbeAttempts, len(runner.calls))
	}
}

func TestRequiresAuthRecoversMidRetry(t *testing.T) {
	runner := &scriptRunner{results: []Result{
		{ExitCode: 1, Stderr: "connection refused"},
		{ExitCode: 4, Stderr: "user authentication required"},
	}}

	auth, err := newTestClient(runner).RequiresAuth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !auth {
		t.Error("expected auth enabled after retry")
	}
	if len(runner.calls) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(runner.calls))
	}
}

func TestCredentialsUnsupportedUser(t *testing.T) {
	client := newTestClient(&scriptRunner{results: []Result{{}}})

	_, err := client.credentials("eve")
	if !errors.Is(err, ErrUnsupportedUser) {
		t.Fatalf("expected ErrUnsupportedUser, got %v", err)
	}
}

func TestMemberName(t *testing.T) {
	if got := MemberName("192.0.2.10"); got != "etcd192_0_2_10" {
		t.Errorf("wrong member name: %s", got)
	}
}
