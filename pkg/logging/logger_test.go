package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig("bakery-inventory")
	cfg.Output = &buf
	cfg.Level = level
	return New(cfg), &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestLogger_ContextIDs(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithOrderID(ctx, "order-9")
	ctx, span := sdktrace.NewTracerProvider().Tracer("test").Start(ctx, "op")
	defer span.End()

	logger.WithComponent("consumption").InfoContext(ctx, "Applied production order", "recipe", "bun")

	line := lastLine(t, buf)
	assert.Equal(t, "req-1", line["requestId"])
	assert.Equal(t, "corr-1", line["correlationId"])
	assert.Equal(t, "order-9", line["orderId"])
	assert.Equal(t, span.SpanContext().TraceID().String(), line["traceId"])
	assert.Equal(t, "consumption", line["component"])
	assert.Equal(t, "bakery-inventory", line["service"])
}

func TestLogger_NoContextIDs(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Info("Server started")

	line := lastLine(t, buf)
	assert.NotContains(t, line, "requestId")
	assert.NotContains(t, line, "traceId")
	ts, err := time.Parse(time.RFC3339Nano, line["time"].(string))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
}

func TestLogger_Levels(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)

	logger.DatabaseQuery(context.Background(), "inventory_items", "find", time.Millisecond, true, 3)
	assert.Zero(t, buf.Len())

	logger.ScheduledJob(context.Background(), "rollover", "2026-10-15", time.Second, 2, errors.New("write conflict"))
	line := lastLine(t, buf)
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "write conflict", line["error"])
	assert.EqualValues(t, 2, line["processed"])
}

func TestLogLevel_Fallback(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.slogLevel().String())
	assert.Equal(t, "ERROR", LevelError.slogLevel().String())
	assert.Equal(t, "INFO", LogLevel("verbose").slogLevel().String())
}
