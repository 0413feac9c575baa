// Package logging is the service's JSON slog setup plus the few structured
// events the inventory logs from several places.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel is the configured minimum level name
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

func (l LogLevel) slogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(string(l)))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Config holds logger configuration
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig logs info and above to stdout. Version comes from $VERSION.
func DefaultConfig(serviceName string) *Config {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: "development",
		Version:     version,
		Output:      os.Stdout,
	}
}

// Logger is a JSON slog.Logger carrying the service attributes
type Logger struct {
	*slog.Logger
}

func New(config *Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       config.Level.slogLevel(),
		AddSource:   config.AddSource,
		ReplaceAttr: utcTime,
	})
	handler = contextHandler{handler}

	return &Logger{Logger: slog.New(handler).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)}
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return a
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// SetDefault makes l the slog default
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func outcomeLevel(ok bool, okLevel slog.Level) slog.Level {
	if ok {
		return okLevel
	}
	return slog.LevelError
}

// DatabaseQuery logs one storage call; successful calls log at debug
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, success bool, rowsAffected int64) {
	l.Log(ctx, outcomeLevel(success, slog.LevelDebug), "Database query",
		"collection", collection,
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
		"rowsAffected", rowsAffected,
	)
}

// KafkaPublish logs one outbox event relayed to the broker
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	l.Log(ctx, outcomeLevel(success, slog.LevelDebug), "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

// ScheduledJob logs a finished rollover or autosave run
func (l *Logger) ScheduledJob(ctx context.Context, job, cycleDate string, duration time.Duration, processed int, err error) {
	attrs := []any{
		"job", job,
		"cycleDate", cycleDate,
		"durationMs", duration.Milliseconds(),
		"processed", processed,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	l.Log(ctx, outcomeLevel(err == nil, slog.LevelInfo), "Scheduled job finished", attrs...)
}

// StockWarning logs a non-fatal stock condition, e.g. a missing ingredient
// or a misconfigured secondary unit
func (l *Logger) StockWarning(ctx context.Context, itemName, reason string, details map[string]any) {
	attrs := make([]any, 0, 4+2*len(details))
	attrs = append(attrs, "itemName", itemName, "reason", reason)
	for k, v := range details {
		attrs = append(attrs, k, v)
	}
	l.WarnContext(ctx, "Stock warning", attrs...)
}

// Panic logs a recovered panic with the current goroutine's stack
func (l *Logger) Panic(ctx context.Context, recovered any) {
	stack := make([]byte, 8<<10)
	stack = stack[:runtime.Stack(stack, false)]
	l.ErrorContext(ctx, "Panic recovered", "panic", recovered, "stack", string(stack))
}
