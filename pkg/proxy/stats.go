package proxy

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Column indexes in the "show stat" CSV output.
const (
	colProxyName  = 0
	colServerName = 1
	colStatus     = 17
)

// SocketStats reads the backend table from the HAProxy stats socket.
type SocketStats struct {
	// Addr is either a unix socket path or a host:port pair.
	Addr string
	// Backend limits rows to one proxy section when set.
	Backend string
	// Timeout bounds the socket conversation.
	Timeout time.Duration
}

func (s SocketStats) network() string {
	if strings.Contains(s.Addr, ":") {
		return "tcp"
	}
	return "unix"
}

// Servers queries the stats socket and returns server rows, skipping the
// FRONTEND/BACKEND aggregate rows.
func (s SocketStats) Servers(ctx context.Context) ([]Server, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, s.network(), s.Addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: stats socket %s: %w", s.Addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := fmt.Fprint(conn, "show stat\n"); err != nil {
		return nil, fmt.Errorf("proxy: stats query: %w", err)
	}
	return ParseStat(conn, s.Backend)
}

// ParseStat decodes "show stat" CSV output into server rows. The header
// line carries a "# " prefix which is stripped before parsing.
func ParseStat(r io.Reader, backend string) ([]Server, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("proxy: read stats: %w", err)
	}
	text := strings.TrimPrefix(string(data), "# ")
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("proxy: parse stats: %w", err)
	}
	var servers []Server
	for i, rec := range records {
		if i == 0 || len(rec) <= colStatus {
			// Header row, or a truncated record.
			continue
		}
		name := rec[colServerName]
		if name == "FRONTEND" || name == "BACKEND" {
			continue
		}
		if backend != "" && rec[colProxyName] != backend {
			continue
		}
		servers = append(servers, Server{Name: name, Status: rec[colStatus]})
	}
	return servers, nil
}
