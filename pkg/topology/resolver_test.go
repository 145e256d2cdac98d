package topology

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dd0wney/pgfleet/pkg/config"
	"github.com/dd0wney/pgfleet/pkg/proxy"
)

type fakeStore struct {
	health     string
	healthErr  error
	members    map[string]string
	membersErr error
}

func (f *fakeStore) ClusterHealth(ctx context.Context) (string, error) {
	return f.health, f.healthErr
}

func (f *fakeStore) Members(ctx context.Context) (map[string]string, error) {
	return f.members, f.membersErr
}

type fakePrimary struct {
	addr string
	err  error
}

func (f *fakePrimary) PrimaryAddr(ctx context.Context) (string, error) {
	return f.addr, f.err
}

type fakeStats struct {
	servers []proxy.Server
	err     error
}

func (f *fakeStats) Servers(ctx context.Context) ([]proxy.Server, error) {
	return f.servers, f.err
}

func TestConsensusResolve(t *testing.T) {
	r := &ConsensusResolver{
		Store: &fakeStore{
			health:  "cluster is healthy",
			members: map[string]string{"192.0.2.1": "a", "192.0.2.2": "b", "192.0.2.3": "c"},
		},
		Primary: &fakePrimary{addr: "192.0.2.1"},
	}

	primary, replicas, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary != "192.0.2.1" {
		t.Errorf("wrong primary: %q", primary)
	}
	if want := []string{"192.0.2.2", "192.0.2.3"}; !reflect.DeepEqual(replicas, want) {
		t.Errorf("wrong replicas: %v, want %v", replicas, want)
	}
}

func TestConsensusResolveUnhealthyStore(t *testing.T) {
	for _, health := range []string{
		"cluster is unavailable",
		"Error: failed to list members",
	} {
		r := &ConsensusResolver{
			Store:   &fakeStore{health: health},
			Primary: &fakePrimary{},
		}
		if _, _, err := r.Resolve(context.Background()); !errors.Is(err, ErrTopologyUnavailable) {
			t.Errorf("health %q: expected ErrTopologyUnavailable, got %v", health, err)
		}
	}
}

func TestConsensusResolveHealthCommandFailure(t *testing.T) {
	r := &ConsensusResolver{
		Store:   &fakeStore{healthErr: errors.New("etcdctl not found")},
		Primary: &fakePrimary{},
	}
	if _, _, err := r.Resolve(context.Background()); !errors.Is(err, ErrTopologyUnavailable) {
		t.Fatalf("expected ErrTopologyUnavailable, got %v", err)
	}
}

func TestConsensusResolveMembersFailure(t *testing.T) {
	r := &ConsensusResolver{
		Store:   &fakeStore{health: "cluster is healthy", membersErr: errors.New("malformed")},
		Primary: &fakePrimary{},
	}
	if _, _, err := r.Resolve(context.Background()); !errors.Is(err, ErrTopologyUnavailable) {
		t.Fatalf("expected ErrTopologyUnavailable, got %v", err)
	}
}

func TestConsensusResolveNoPrimary(t *testing.T) {
	r := &ConsensusResolver{
		Store: &fakeStore{
			health:  "cluster is healthy",
			members: map[string]string{"192.0.2.1": "a", "192.0.2.2": "b"},
		},
		Primary: &fakePrimary{err: errors.New("dsn lookup failed")},
	}

	primary, replicas, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("an unresolvable primary is not a topology error, got: %v", err)
	}
	if primary != "" {
		t.Errorf("expected empty primary, got %q", primary)
	}
	// All members become replicas when the primary is unknown.
	if len(replicas) != 2 {
		t.Errorf("expected 2 replicas, got %v", replicas)
	}
}

func TestProxyResolve(t *testing.T) {
	r := &ProxyResolver{Stats: &fakeStats{servers: []proxy.Server{
		{Name: "postgresql_192.0.2.1_5432", Status: "UP"},
		{Name: "postgresql_192.0.2.2_5432", Status: "DOWN"},
		{Name: "postgresql_192.0.2.3_5432", Status: "no check"},
	}}}

	primary, replicas, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary != "192.0.2.1" {
		t.Errorf("wrong primary: %q", primary)
	}
	if want := []string{"192.0.2.2", "192.0.2.3"}; !reflect.DeepEqual(replicas, want) {
		t.Errorf("wrong replicas: %v, want %v", replicas, want)
	}
}

func TestProxyResolveNoneUp(t *testing.T) {
	r := &ProxyResolver{Stats: &fakeStats{servers: []proxy.Server{
		{Name: "postgresql_192.0.2.1_5432", Status: "DOWN"},
		{Name: "postgresql_192.0.2.2_5432", Status: "DOWN"},
	}}}

	primary, replicas, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary != "" {
		t.Errorf("expected no primary, got %q", primary)
	}
	if len(replicas) != 2 {
		t.Errorf("expected 2 replicas, got %v", replicas)
	}
}

func TestProxyResolveMultipleUp(t *testing.T) {
	r := &ProxyResolver{Stats: &fakeStats{servers: []proxy.Server{
		{Name: "postgresql_192.0.2.1_5432", Status: "UP"},
		{Name: "postgresql_192.0.2.2_5432", Status: "UP"},
	}}}

	primary, replicas, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary != "192.0.2.1" {
		t.Errorf("first UP backend wins, got %q", primary)
	}
	if want := []string{"192.0.2.2"}; !reflect.DeepEqual(replicas, want) {
		t.Errorf("second UP backend must stay visible as replica: %v", replicas)
	}
}

func TestProxyResolveStatsFailure(t *testing.T) {
	r := &ProxyResolver{Stats: &fakeStats{err: errors.New("socket refused")}}
	if _, _, err := r.Resolve(context.Background()); !errors.Is(err, ErrTopologyUnavailable) {
		t.Fatalf("expected ErrTopologyUnavailable, got %v", err)
	}
}

func TestNewSelectsStrategyByRole(t *testing.T) {
	cfg := config.Default()

	cfg.Role = config.RoleDatabase
	r, err := New(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*ConsensusResolver); !ok {
		t.Errorf("database role must resolve through the consensus store, got %T", r)
	}

	cfg.Role = config.RoleClient
	r, err = New(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*ProxyResolver); !ok {
		t.Errorf("client role must resolve through the proxy, got %T", r)
	}

	cfg.Role = "weird"
	if _, err := New(cfg, nil, nil, nil); !errors.Is(err, ErrRoleUnsupported) {
		t.Errorf("expected ErrRoleUnsupported, got %v", err)
	}
}
