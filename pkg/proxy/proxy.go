// Package proxy reads and edits the client-side HAProxy deployment: the
// live backend table for topology observation and the configuration file
// backend list for membership changes.
package proxy

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Server is one row of the live backend table.
type Server struct {
	// Name is the svname field, encoding role, address and port as
	// <prefix>_<ip>_<port>.
	Name string
	// Status is the health check verdict, "UP" for the primary backend.
	Status string
}

// Addr extracts the node address encoded in the server name. ok is false
// for rows that do not follow the <prefix>_<ip>_<port> convention.
func (s Server) Addr() (string, bool) {
	parts := strings.Split(s.Name, "_")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// StatsReader returns the live backend table. The production implementation
// queries the stats socket; tests return fixed rows.
type StatsReader interface {
	Servers(ctx context.Context) ([]Server, error)
}

// ServiceManager restarts system services after a backend table change.
type ServiceManager interface {
	Restart(ctx context.Context, service string) error
}

// backendEntry is the configuration line appended for each database node.
const backendEntry = "    server postgresql_%s_5432 %s:5432 " +
	"maxconn 100 check check-ssl port 8008 ca-file %s"

// BackendLine renders the configuration entry for a node address.
func BackendLine(addr, caPath string) string {
	return fmt.Sprintf(backendEntry, addr, addr, caPath)
}

// ConfigEditor mutates the backend list in the proxy configuration file.
type ConfigEditor interface {
	AppendBackend(addr string) error
	RemoveBackend(addr string) error
}

// FileEditor edits the configuration file in place.
type FileEditor struct {
	Path   string
	CAPath string
}

func (e FileEditor) AppendBackend(addr string) error {
	f, err := os.OpenFile(e.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("proxy: open %s: %w", e.Path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(BackendLine(addr, e.CAPath) + "\n"); err != nil {
		return fmt.Errorf("proxy: append backend: %w", err)
	}
	return nil
}

func (e FileEditor) RemoveBackend(addr string) error {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return fmt.Errorf("proxy: read %s: %w", e.Path, err)
	}
	target := BackendLine(addr, e.CAPath)
	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimRight(line, " ") == target {
			continue
		}
		kept = append(kept, line)
	}
	if err := os.WriteFile(e.Path, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		return fmt.Errorf("proxy: write %s: %w", e.Path, err)
	}
	return nil
}
