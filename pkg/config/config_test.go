package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
role: database
local_addr: 192.0.2.1
nodes:
  - 192.0.2.1
  - 192.0.2.2
consensus:
  client_port: 2379
  peer_port: 2380
  root_password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Role != RoleDatabase {
		t.Errorf("wrong role: %q", cfg.Role)
	}
	if cfg.LocalAddr != "192.0.2.1" {
		t.Errorf("wrong local addr: %q", cfg.LocalAddr)
	}
	if len(cfg.Nodes) != 2 {
		t.Errorf("wrong nodes: %v", cfg.Nodes)
	}
	// Unset sections keep their defaults.
	if cfg.Agent.Port != 8008 {
		t.Errorf("agent port default lost: %d", cfg.Agent.Port)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port default lost: %d", cfg.Postgres.Port)
	}
	if cfg.Consensus.RootPassword != "secret" {
		t.Errorf("consensus override lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "role: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateRejectsBadRole(t *testing.T) {
	cfg := Default()
	cfg.LocalAddr = "192.0.2.1"
	cfg.Role = "standby"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown role")
	}
}

func TestValidateRequiresLocalAddr(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing local_addr")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.LocalAddr = "192.0.2.1"
	cfg.Agent.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero port")
	}
}

func TestProbeCAPath(t *testing.T) {
	cfg := Default()
	cfg.Consensus.CAPath = "/etc/etcd/ca.crt"
	cfg.Postgres.CAPath = "/etc/haproxy/ca.crt"

	cfg.Role = RoleDatabase
	if got := cfg.ProbeCAPath(); got != "/etc/etcd/ca.crt" {
		t.Errorf("database role must trust the etcd CA, got %q", got)
	}

	cfg.Role = RoleClient
	if got := cfg.ProbeCAPath(); got != "/etc/haproxy/ca.crt" {
		t.Errorf("client role must trust the postgres CA, got %q", got)
	}
}
