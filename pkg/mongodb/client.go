package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ErrTransactionsUnsupported is returned by NewClient when the server is a
// standalone mongod. Ledger writes need multi-document transactions.
var ErrTransactionsUnsupported = errors.New("mongodb deployment does not support transactions; run it as a replica set")

// Config holds MongoDB connection configuration. Credentials go in the URI.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64

	ReplicaSet string
	// Direct connects to the given host without replica set discovery
	Direct bool
	// TransactionTimeout bounds one WithTransaction call, retries included
	TransactionTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		URI:                "mongodb://localhost:27017",
		Database:           "bakery_inventory",
		ConnectTimeout:     10 * time.Second,
		MaxPoolSize:        50,
		MinPoolSize:        2,
		TransactionTimeout: 15 * time.Second,
	}
}

// Client wraps the MongoDB client and the service database
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	config   *Config
}

// NewClient connects, pings the primary and checks that the deployment can
// run transactions
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	opts := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetReadPreference(readpref.Primary())
	if config.ReplicaSet != "" {
		opts.SetReplicaSet(config.ReplicaSet)
	}
	if config.Direct {
		opts.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	c := &Client{client: client, database: client.Database(config.Database), config: config}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	if err := c.checkTransactions(pingCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return c, nil
}

// checkTransactions asks the server for its topology. Replica set members
// report setName and mongos reports isdbgrid.
func (c *Client) checkTransactions(ctx context.Context) error {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := c.client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return fmt.Errorf("failed to read MongoDB topology: %w", err)
	}
	if hello.SetName == "" && hello.Msg != "isdbgrid" {
		return ErrTransactionsUnsupported
	}
	return nil
}

// Database returns the database handle
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Collection returns a collection handle
func (c *Client) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck pings the primary
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// WithTransaction runs fn in a majority-committed snapshot transaction. The
// driver retries fn on transient errors, so fn must be safe to run again.
func (c *Client) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	if c.config.TransactionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.TransactionTimeout)
		defer cancel()
	}

	session, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}, txnOpts)
	return err
}
