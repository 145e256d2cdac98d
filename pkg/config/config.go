// Package config defines the pgfleet runtime configuration.
//
// Configuration is an explicit value handed to each component constructor.
// Nothing in pgfleet reads ambient process-wide state; the CLI loads one
// Config from YAML and threads it through probe, topology and cluster.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Role identifies what kind of node this process runs on. Database nodes
// talk to etcd and patroni directly; client (manager) nodes observe the
// cluster through the HAProxy backend table.
type Role string

const (
	RoleDatabase Role = "database"
	RoleClient   Role = "client"
)

// Config carries everything pgfleet needs to reach the cluster.
type Config struct {
	// Role selects the topology resolution strategy.
	Role Role `yaml:"role" validate:"required,oneof=database client"`

	// LocalAddr is this node's private address, used for local-only
	// consensus store access.
	LocalAddr string `yaml:"local_addr" validate:"required,hostname|ip"`

	// Nodes lists the addresses of all database cluster nodes.
	Nodes []string `yaml:"nodes" validate:"omitempty,dive,hostname|ip"`

	Agent     AgentConfig     `yaml:"agent"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Proxy     ProxyConfig     `yaml:"proxy"`
}

// AgentConfig describes the per-node HA agent REST endpoint.
type AgentConfig struct {
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
	// Scope is the agent cluster name used by patronictl commands.
	Scope string `yaml:"scope" validate:"required"`
	// CtlConfigPath is the patroni configuration passed to patronictl -c.
	CtlConfigPath string `yaml:"ctl_config_path"`
}

// ConsensusConfig describes the etcd cluster endpoints and credentials.
type ConsensusConfig struct {
	ClientPort int    `yaml:"client_port" validate:"required,min=1,max=65535"`
	PeerPort   int    `yaml:"peer_port" validate:"required,min=1,max=65535"`
	CAPath     string `yaml:"ca_path"`
	// Passwords for the supported etcd users, keyed by username.
	RootPassword    string `yaml:"root_password"`
	PatroniPassword string `yaml:"patroni_password"`
	// ConfigKey is the DCS key holding the agent configuration blob.
	ConfigKey string `yaml:"config_key"`
}

// PostgresConfig describes how the database itself is reached.
type PostgresConfig struct {
	Port   int    `yaml:"port" validate:"required,min=1,max=65535"`
	CAPath string `yaml:"ca_path"`
}

// ProxyConfig describes the client-side HAProxy deployment.
type ProxyConfig struct {
	ConfigPath string `yaml:"config_path"`
	// StatsAddr is the stats socket address, either a unix path or host:port.
	StatsAddr string `yaml:"stats_addr"`
	// Services restarted after a backend table change, in order.
	DependentServices []string `yaml:"dependent_services"`
	CAPath            string   `yaml:"ca_path"`
}

// Timeouts that are deliberately not configurable: they mirror the agent's
// own retry windows and changing them independently causes confusing
// half-timeouts during failover.
const (
	ProbeTimeout      = 5 * time.Second
	AuthProbeAttempts = 5
	AuthProbeBackoff  = 3 * time.Second
	PromotePolls      = 30
	PromotePollPause  = time.Second
)

var validate = validator.New()

// Default returns a Config with the standard port layout filled in.
func Default() Config {
	return Config{
		Role: RoleDatabase,
		Agent: AgentConfig{
			Port:          8008,
			Scope:         "postgres",
			CtlConfigPath: "/etc/patroni.conf",
		},
		Consensus: ConsensusConfig{
			ClientPort: 2379,
			PeerPort:   2380,
			CAPath:     "/etc/etcd/ca.crt",
			ConfigKey:  "/db/postgres/config",
		},
		Postgres: PostgresConfig{
			Port:   5432,
			CAPath: "/etc/haproxy/ca.crt",
		},
		Proxy: ProxyConfig{
			ConfigPath:        "/etc/haproxy/haproxy.cfg",
			StatsAddr:         "/var/lib/haproxy/stats",
			DependentServices: []string{"haproxy"},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration using struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ProbeCAPath returns the trust anchor used to verify node endpoints.
// Database nodes reuse the etcd CA because the postgres certificate
// directory is not readable from here; client nodes hold their own copy of
// the postgres CA.
func (c Config) ProbeCAPath() string {
	if c.Role == RoleDatabase {
		return c.Consensus.CAPath
	}
	return c.Postgres.CAPath
}
