package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
)

// Context keys
const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"
	ContextKeyTraceID       = "traceId"
)

// HTTP header names
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// opsPaths are polled by the platform and kept out of access logs and traces
var opsPaths = []string{"/health", "/ready", "/metrics"}

func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// RequestContext assigns the request id and correlation id, echoes them as
// response headers and stores them on the request context for logs and
// outbox events. A caller without a correlation id gets the request id.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = requestID
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Set(ContextKeyCorrelationID, correlationID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderCorrelationID, correlationID)

		ctx := logging.ContextWithRequestID(c.Request.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		ctx = cloudevents.ContextWithCorrelationID(ctx, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AccessLog writes one line per request, keyed by route template rather
// than raw path. Ops endpoints are skipped.
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	skip := pathSet(opsPaths)

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"latencyMs", latency.Milliseconds(),
			"clientIP", c.ClientIP(),
			"requestId", GetRequestID(c),
			"correlationId", GetCorrelationID(c),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			attrs = append(attrs, "query", q)
		}
		if traceID := c.GetString(ContextKeyTraceID); traceID != "" {
			attrs = append(attrs, "traceId", traceID)
		}
		if c.Writer.Header().Get("Idempotency-Replayed") == "true" {
			attrs = append(attrs, "replayed", true)
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "HTTP request", attrs...)
	}
}

// Recovery turns a panic into a 500 response and logs the stack
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Panic(c.Request.Context(), recovered)
				AbortWithAppError(c, errors.ErrInternal("An unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

// GetRequestID extracts request ID from context
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID extracts correlation ID from context
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}
