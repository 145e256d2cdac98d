package proxy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// SystemctlManager restarts services through systemctl.
type SystemctlManager struct {
	// Command overrides the binary name, for tests.
	Command string
}

func (m SystemctlManager) Restart(ctx context.Context, service string) error {
	name := m.Command
	if name == "" {
		name = "systemctl"
	}
	cmd := exec.CommandContext(ctx, name, "restart", service)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("proxy: restart %s: %w: %s", service, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
