// Package probe fetches raw status from a single node's HA agent endpoint
// and from the consensus store endpoint.
//
// Probes never return transport errors: an unreachable node yields a nil
// status and a logged warning so that callers can still assemble a partial,
// best-effort view of the cluster. Dead nodes are visible in the output,
// not absent from it.
package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dd0wney/pgfleet/pkg/config"
	"github.com/dd0wney/pgfleet/pkg/logging"
	"github.com/dd0wney/pgfleet/pkg/metrics"
)

// Prober is the probe surface consumed by the aggregator and the
// membership controller. Satisfied by *Probe and by test fakes.
type Prober interface {
	Agent(ctx context.Context, addr string) *AgentStatus
	Consensus(ctx context.Context, addr string) *ConsensusStatus
}

// Probe issues bounded-timeout HTTPS requests against cluster nodes.
type Probe struct {
	httpc         *http.Client
	agentPort     int
	consensusPort int
	reg           *metrics.Registry
}

// New builds a Probe from the runtime configuration. The TLS trust anchor
// depends on the caller role: database nodes verify against the etcd CA,
// client nodes against the postgres CA (see config.ProbeCAPath).
func New(cfg config.Config) (*Probe, error) {
	tlsCfg := &tls.Config{}
	if caPath := cfg.ProbeCAPath(); caPath != "" {
		ca, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("probe: read CA %s: %w", caPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("probe: no certificates in %s", caPath)
		}
		tlsCfg.RootCAs = pool
	}
	return &Probe{
		httpc: &http.Client{
			Timeout:   config.ProbeTimeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		agentPort:     cfg.Agent.Port,
		consensusPort: cfg.Consensus.ClientPort,
		reg:           metrics.DefaultRegistry(),
	}, nil
}

// Agent fetches the HA agent status of addr. Returns nil when the node is
// unreachable or answers garbage.
func (p *Probe) Agent(ctx context.Context, addr string) *AgentStatus {
	if addr == "" {
		return nil
	}
	url := fmt.Sprintf("https://%s:%d/", addr, p.agentPort)
	var status AgentStatus
	if !p.get(ctx, "agent", url, &status) {
		return nil
	}
	return &status
}

// Consensus fetches the consensus store's self status of addr. Returns nil
// when the store on that node is unreachable.
func (p *Probe) Consensus(ctx context.Context, addr string) *ConsensusStatus {
	if addr == "" {
		return nil
	}
	url := fmt.Sprintf("https://%s:%d/v2/stats/self", addr, p.consensusPort)
	var status ConsensusStatus
	if !p.get(ctx, "consensus", url, &status) {
		return nil
	}
	return &status
}

func (p *Probe) get(ctx context.Context, kind, url string, out any) bool {
	start := time.Now()
	ok := p.doGet(ctx, url, out)
	p.reg.RecordProbe(kind, ok, time.Since(start))
	return ok
}

func (p *Probe) doGet(ctx context.Context, url string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logging.L().Warn().Err(err).Str("url", url).Msg("probe: bad request")
		return false
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		logging.L().Warn().Err(err).Str("url", url).Msg("probe: node unreachable")
		return false
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logging.L().Warn().Err(err).Str("url", url).Msg("probe: undecodable status")
		return false
	}
	return true
}
