package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext falls back to the global logger and returns scoped loggers.
func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.NotNil(t, FromContext(ctx))

	core, logs := observer.New(zapcore.DebugLevel)
	scoped := zap.New(core).Sugar()

	ctx = ToContext(ctx, scoped)
	require.Same(t, scoped, FromContext(ctx))

	ctx = WithName(ctx, "pipeline")
	ctx = WithKV(ctx, "component", "webconsole")

	Info(ctx, "hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "pipeline", entries[0].LoggerName)
	require.Equal(t, "webconsole", entries[0].ContextMap()["component"])
}

// TestWithFields attaches structured fields through the context.
func TestWithFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithFields(ctx, zap.String("mode", "file"))

	Info(ctx, "hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "file", entries[0].ContextMap()["mode"])
}

// TestWithLevel restricts a core to the provided level.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	restricted := zap.New(core, WithLevel(zapcore.ErrorLevel)).Sugar()

	restricted.Info("dropped")
	restricted.Error("kept")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "kept", entries[0].Message)
}
