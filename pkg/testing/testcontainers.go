package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	pkgmongo "github.com/bakery-platform/inventory/pkg/mongodb"
)

// MongoDBContainer wraps a single-node replica set MongoDB testcontainer.
// A replica set is needed for the multi-document transactions the
// repositories use.
type MongoDBContainer struct {
	Container *mongodb.MongoDBContainer
	URI       string
}

// NewMongoDBContainer starts a MongoDB testcontainer
func NewMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	container, err := mongodb.Run(ctx, "mongo:6", mongodb.WithReplicaSet("rs"))
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoDBContainer{Container: container, URI: uri}, nil
}

// Connect opens a client on database against the container
func (m *MongoDBContainer) Connect(ctx context.Context, database string) (*pkgmongo.Client, error) {
	cfg := pkgmongo.DefaultConfig()
	cfg.URI = m.URI
	cfg.Database = database
	cfg.ConnectTimeout = 20 * time.Second
	cfg.Direct = true
	return pkgmongo.NewClient(ctx, cfg)
}

// Close terminates the MongoDB container
func (m *MongoDBContainer) Close(ctx context.Context) error {
	if m.Container != nil {
		return m.Container.Terminate(ctx)
	}
	return nil
}
