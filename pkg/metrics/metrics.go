package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all bakery inventory metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Business metrics
	ProductionOrdersApplied *prometheus.CounterVec
	IngredientConsumed      *prometheus.CounterVec
	IngredientOutcomes      *prometheus.CounterVec
	OverConsumption         *prometheus.CounterVec
	RolloverRuns            *prometheus.CounterVec
	RolloverDuration        prometheus.Histogram
	RecordsArchived         *prometheus.CounterVec
	LowStockItems           prometheus.Gauge
	SchedulerSuppressed     prometheus.Gauge

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
	OutboxPending   prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "bakery",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	// HTTP metrics
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Kafka metrics
	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	// MongoDB metrics
	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		},
		[]string{"service", "collection", "operation", "status"},
	)

	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "collection", "operation"},
	)

	// Business metrics
	m.ProductionOrdersApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "production_orders_applied_total",
			Help:      "Total number of production orders applied against stock",
		},
		[]string{"service", "status"},
	)

	m.IngredientConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "ingredient_consumed_quantity_total",
			Help:      "Requested ingredient quantity consumed, in primary units",
		},
		[]string{"service", "ingredient", "unit"},
	)

	m.IngredientOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "ingredient_outcomes_total",
			Help:      "Per-ingredient consumption outcomes",
		},
		[]string{"service", "outcome"},
	)

	m.OverConsumption = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "ingredient_over_consumed_quantity_total",
			Help:      "Quantity drawn beyond the request because secondary units are consumed whole",
		},
		[]string{"service", "ingredient"},
	)

	m.RolloverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "cycle_rollover_runs_total",
			Help:      "Cycle rollover runs by result",
		},
		[]string{"service", "result"},
	)

	m.RolloverDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "cycle_rollover_duration_seconds",
			Help:        "Cycle rollover duration in seconds",
			Buckets:     []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.RecordsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "daily_records_archived_total",
			Help:      "Daily records written, by source",
		},
		[]string{"service", "source"},
	)

	m.LowStockItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "low_stock_items",
			Help:        "Number of items whose current stock is below their minimum quantity",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.SchedulerSuppressed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "rollover_scheduler_suppressed",
			Help:        "1 while the rollover scheduler is suppressed by a consumption write",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Outbox metrics
	m.OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_events_published_total",
			Help:      "Outbox events relayed to Kafka",
		},
		[]string{"service", "event_type", "status"},
	)

	m.OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "outbox_events_pending",
			Help:        "Outbox events fetched but not yet published in the last poll",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Circuit breaker metrics
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.ProductionOrdersApplied,
		m.IngredientConsumed,
		m.IngredientOutcomes,
		m.OverConsumption,
		m.RolloverRuns,
		m.RolloverDuration,
		m.RecordsArchived,
		m.LowStockItems,
		m.SchedulerSuppressed,
		m.OutboxPublished,
		m.OutboxPending,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish event
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordProductionOrder records one applied (or failed) production order
func (m *Metrics) RecordProductionOrder(success bool) {
	m.ProductionOrdersApplied.WithLabelValues(m.serviceName, statusLabel(success)).Inc()
}

// RecordIngredientConsumption records the requested quantity and outcome for one ingredient
func (m *Metrics) RecordIngredientConsumption(ingredient, unit, outcome string, qty, overConsumed float64) {
	m.IngredientOutcomes.WithLabelValues(m.serviceName, outcome).Inc()
	if qty > 0 {
		m.IngredientConsumed.WithLabelValues(m.serviceName, ingredient, unit).Add(qty)
	}
	if overConsumed > 0 {
		m.OverConsumption.WithLabelValues(m.serviceName, ingredient).Add(overConsumed)
	}
}

// RecordRollover records a rollover run. result is one of
// completed, skipped, suppressed or failed.
func (m *Metrics) RecordRollover(result string, duration time.Duration) {
	m.RolloverRuns.WithLabelValues(m.serviceName, result).Inc()
	if duration > 0 {
		m.RolloverDuration.Observe(duration.Seconds())
	}
}

// RecordDailyRecords records archived daily records
func (m *Metrics) RecordDailyRecords(source string, count int) {
	m.RecordsArchived.WithLabelValues(m.serviceName, source).Add(float64(count))
}

// SetLowStockItems sets the current low-stock item count
func (m *Metrics) SetLowStockItems(count int) {
	m.LowStockItems.Set(float64(count))
}

// SetSchedulerSuppressed flags whether the rollover scheduler is suppressed
func (m *Metrics) SetSchedulerSuppressed(suppressed bool) {
	if suppressed {
		m.SchedulerSuppressed.Set(1)
		return
	}
	m.SchedulerSuppressed.Set(0)
}

// RecordOutboxPublish records one relayed outbox event
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	m.OutboxPublished.WithLabelValues(m.serviceName, eventType, statusLabel(success)).Inc()
}

// SetOutboxPending sets the number of pending outbox events
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
