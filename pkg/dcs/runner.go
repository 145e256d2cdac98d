package dcs

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// Result captures one finished etcdctl invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes etcdctl. The production implementation shells out; tests
// substitute a scripted fake.
type Runner interface {
	Run(ctx context.Context, env []string, stdin string, args ...string) (Result, error)
}

// ExecRunner runs etcdctl through os/exec.
type ExecRunner struct {
	// Command overrides the binary name, for tests.
	Command string
}

func (r ExecRunner) Run(ctx context.Context, env []string, stdin string, args ...string) (Result, error) {
	name := r.Command
	if name == "" {
		name = "etcdctl"
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			// Command-level failure is part of the result, not an error:
			// callers inspect exit codes (auth detection relies on them).
			return res, nil
		}
		return res, err
	}
	return res, nil
}
