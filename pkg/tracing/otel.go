// Package tracing sets up OpenTelemetry export for the inventory service and
// holds the span helpers shared by the scheduler, storage and publisher.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint is a collector gRPC address, host:port
	OTLPEndpoint string
	// SampleRate applies to root spans; children follow their parent
	SampleRate float64
	Enabled    bool
}

// DefaultConfig returns a disabled configuration pointing at a local collector
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
	}
}

// TracerProvider owns the SDK provider when export is enabled
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// Initialize installs the global tracer provider and W3C propagators. With
// tracing disabled the global no-op provider stays in place.
func Initialize(ctx context.Context, config *Config) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{tracer: otel.Tracer(config.ServiceName)}, nil
	}

	exporter, err := newExporter(ctx, config.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(config.ServiceName),
		semconv.ServiceVersionKey.String(config.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(config.Environment),
		attribute.String("service.namespace", "bakery"),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(config.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{provider: provider, tracer: provider.Tracer(config.ServiceName)}, nil
}

func newExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial collector %s: %w", endpoint, err)
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(otlptracegrpc.WithGRPCConn(conn)))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	return exporter, nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// Shutdown flushes pending spans
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Tracer returns the service tracer
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// GetTraceID returns the active trace id, or "" outside a span
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// MessagingSpanAttributes describes a broker operation
func MessagingSpanAttributes(system, destination, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.MessagingSystemKey.String(system),
		semconv.MessagingDestinationNameKey.String(destination),
		semconv.MessagingOperationKey.String(operation),
	}
}

// JobSpanAttributes describes a scheduled ledger job for one cycle date
func JobSpanAttributes(job, cycleDate string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("bakery.job", job),
		attribute.String("bakery.cycle_date", cycleDate),
	}
}

// TracedOperation runs operation inside a span and records its outcome
func TracedOperation[T any](ctx context.Context, tracer trace.Tracer, spanName string, operation func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	defer span.End()

	result, err := operation(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}
