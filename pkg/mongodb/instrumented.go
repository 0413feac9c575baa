package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
)

// InstrumentedClient wraps a MongoDB Client with metrics and tracing
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates a new instrumented MongoDB client.
// Either m or logger may be nil.
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Collection(name),
		name:       name,
		database:   c.client.config.Database,
		metrics:    c.metrics,
		logger:     c.logger,
		tracer:     c.tracer,
	}
}

// Database returns the underlying database handle
func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck performs a health check with tracing
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.ping",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
	defer span.End()

	err := c.client.HealthCheck(ctx)
	endSpan(span, err)
	return err
}

// WithTransaction executes fn within a transaction with tracing. Every
// collection call made with sessCtx joins the transaction.
func (c *InstrumentedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.transaction",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
	defer span.End()

	err := c.client.WithTransaction(ctx, fn)
	endSpan(span, err)
	return err
}

// InstrumentedCollection wraps a MongoDB Collection with metrics and tracing
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// observe runs op inside a client span and records metrics for it.
// op returns the number of documents it touched.
func (c *InstrumentedCollection) observe(ctx context.Context, operation string, op func(ctx context.Context) (int64, error)) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", c.name),
		),
	)
	defer span.End()

	rows, err := op(ctx)
	duration := time.Since(start)

	// A missing document is an answer, not a failure
	success := err == nil || errors.Is(err, mongo.ErrNoDocuments)

	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.name, operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, success, rows)
	}

	if success {
		span.SetAttributes(attribute.Int64("db.rows_affected", rows))
		endSpan(span, nil)
	} else {
		endSpan(span, err)
	}
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// InsertOne inserts a single document with instrumentation
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	var result *mongo.InsertOneResult
	err := c.observe(ctx, "insertOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.InsertOne(ctx, document, opts...)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result, err
}

// FindOne finds a single document with instrumentation
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	_ = c.observe(ctx, "findOne", func(ctx context.Context) (int64, error) {
		result = c.collection.FindOne(ctx, filter, opts...)
		if err := result.Err(); err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result
}

// Find finds multiple documents with instrumentation. The row count is not
// known until the cursor is drained, so it is recorded as zero.
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	var cursor *mongo.Cursor
	err := c.observe(ctx, "find", func(ctx context.Context) (int64, error) {
		var err error
		cursor, err = c.collection.Find(ctx, filter, opts...)
		return 0, err
	})
	return cursor, err
}

// UpdateOne updates a single document with instrumentation
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "updateOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.UpdateOne(ctx, filter, update, opts...)
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	return result, err
}

// ReplaceOne replaces a single document with instrumentation
func (c *InstrumentedCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "replaceOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.ReplaceOne(ctx, filter, replacement, opts...)
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	return result, err
}

// DeleteOne deletes a single document with instrumentation
func (c *InstrumentedCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := c.observe(ctx, "deleteOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.DeleteOne(ctx, filter, opts...)
		if err != nil {
			return 0, err
		}
		return result.DeletedCount, nil
	})
	return result, err
}

// DeleteMany deletes multiple documents with instrumentation
func (c *InstrumentedCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := c.observe(ctx, "deleteMany", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.DeleteMany(ctx, filter, opts...)
		if err != nil {
			return 0, err
		}
		return result.DeletedCount, nil
	})
	return result, err
}

// FindOneAndUpdate finds and updates a single document with instrumentation
func (c *InstrumentedCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	_ = c.observe(ctx, "findOneAndUpdate", func(ctx context.Context) (int64, error) {
		result = c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
		if err := result.Err(); err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result
}

// CreateIndexes creates indexes with instrumentation
func (c *InstrumentedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error) {
	var names []string
	err := c.observe(ctx, "createIndexes", func(ctx context.Context) (int64, error) {
		var err error
		names, err = c.collection.Indexes().CreateMany(ctx, models, opts...)
		return int64(len(names)), err
	})
	return names, err
}
