package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	l := New("debug", "json")
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = New("warn", "console")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l = New("nonsense", "json")
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestContextLogger_EnrichesFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithPrincipal(ctx, "demo@example.com")
	ctx = WithTraceID(ctx, "trace-1")

	cl.LogRequest(ctx, "GET", "/streams", 200, 12)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "demo@example.com", fields["principal"])
		assert.Equal(t, "trace-1", fields["trace_id"])
		assert.Equal(t, "/streams", fields["path"])
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	}

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "demo@example.com", Principal(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestContextLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewContextLogger(zap.New(core))

	cl.LogRequest(context.Background(), "GET", "/x", 404, 1)
	cl.LogRequest(context.Background(), "GET", "/x", 503, 1)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	}
}
