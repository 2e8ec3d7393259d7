package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExecRunner_Run executes a trivial command and captures its output.
func TestExecRunner_Run(t *testing.T) {
	t.Parallel()

	runner := NewExecRunner()

	output, err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "echo ok")
	require.NoError(t, err)
	require.Contains(t, string(output), "ok")
}

// TestExecRunner_Run_Failure reports non-zero exits as errors and keeps output.
func TestExecRunner_Run_Failure(t *testing.T) {
	t.Parallel()

	runner := NewExecRunner()

	output, err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	require.Contains(t, string(output), "broken")
}
