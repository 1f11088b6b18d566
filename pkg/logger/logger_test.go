package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := globalLogger
	globalLogger = zap.New(core)
	t.Cleanup(func() { globalLogger = prev })
	return logs
}

func TestGet_BeforeInitIsNop(t *testing.T) {
	prev := globalLogger
	globalLogger = nil
	defer func() { globalLogger = prev }()

	require.NotNil(t, Get())
	Info("dropped")
}

func TestFieldHelpers(t *testing.T) {
	logs := observe(t)

	Info("fields",
		String("user", "u1"),
		Strings("users", []string{"u1", "u2"}),
		Int("count", 2),
		Bool("online", true),
		Duration("took", 3*time.Millisecond),
		ErrorField(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "u1", ctx["user"])
	assert.Equal(t, []interface{}{"u1", "u2"}, ctx["users"])
	assert.Equal(t, int64(2), ctx["count"])
	assert.Equal(t, true, ctx["online"])
	assert.Equal(t, 3*time.Millisecond, ctx["took"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestWithContext_CarriesRequestID(t *testing.T) {
	logs := observe(t)

	ctx := WithRequestID(context.Background(), "req-1")
	WithContext(ctx).Info("handled")
	WithContext(context.Background()).Info("bare")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "req-1", logs.All()[0].ContextMap()["request_id"])
	assert.NotContains(t, logs.All()[1].ContextMap(), "request_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
