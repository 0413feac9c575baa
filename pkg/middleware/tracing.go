package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakery-platform/inventory/pkg/tracing"
)

// TracingConfig holds tracing middleware configuration
type TracingConfig struct {
	ServiceName string
	SkipPaths   []string
	Propagators propagation.TextMapPropagator
}

// DefaultTracingConfig skips the ops endpoints
func DefaultTracingConfig(serviceName string) *TracingConfig {
	return &TracingConfig{
		ServiceName: serviceName,
		SkipPaths:   opsPaths,
		Propagators: otel.GetTextMapPropagator(),
	}
}

// routeParamAttrs maps route parameters to span attributes, so a trace for
// PUT /api/v1/inventory/:id can be found by item id
var routeParamAttrs = map[string]string{
	"id":     "bakery.resource.id",
	"itemId": "bakery.item.id",
	"date":   "bakery.record.date",
}

// TracingMiddleware starts a server span per request, continuing any trace
// context sent by the caller
func TracingMiddleware(config *TracingConfig) gin.HandlerFunc {
	tracer := otel.Tracer(config.ServiceName)
	skip := pathSet(config.SkipPaths)

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := config.Propagators.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []attribute.KeyValue{
			semconv.HTTPMethodKey.String(c.Request.Method),
			semconv.HTTPRouteKey.String(route),
			attribute.String("http.target", c.Request.URL.RequestURI()),
			attribute.String("http.client_ip", c.ClientIP()),
			attribute.String("service.name", config.ServiceName),
		}
		for _, p := range c.Params {
			if key, ok := routeParamAttrs[p.Key]; ok {
				attrs = append(attrs, attribute.String(key, p.Value))
			}
		}
		if key := c.GetHeader("Idempotency-Key"); key != "" {
			attrs = append(attrs, attribute.String("bakery.idempotency_key", key))
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, attribute.String("request.id", id))
		}
		if id := GetCorrelationID(c); id != "" {
			attrs = append(attrs, attribute.String("correlation.id", id))
		}

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		if traceID := tracing.GetTraceID(ctx); traceID != "" {
			c.Set(ContextKeyTraceID, traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			semconv.HTTPStatusCodeKey.Int(status),
			attribute.Int("http.response_size", c.Writer.Size()),
		)
		if replayed := c.Writer.Header().Get("Idempotency-Replayed"); replayed != "" {
			span.SetAttributes(attribute.Bool("bakery.idempotency_replayed", replayed == "true"))
		}

		for _, err := range c.Errors {
			span.RecordError(err.Err)
		}
		// only server errors mark the span failed
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
	}
}

// SimpleTracingMiddleware creates a tracing middleware using default config
func SimpleTracingMiddleware(serviceName string) gin.HandlerFunc {
	return TracingMiddleware(DefaultTracingConfig(serviceName))
}
