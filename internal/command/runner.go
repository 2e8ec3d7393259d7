package command

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external tool in a working directory and returns its
// combined output. A non-zero exit status or failure to launch is an error.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

// Run calls the underlying function.
func (f RunnerFunc) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	return f(ctx, dir, name, args...)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and waits for it to finish.
// Output of failed commands is preserved in the returned bytes so callers
// can log it for post-mortem inspection.
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w", name, err)
	}

	return output, nil
}
