package idempotency

import (
	"context"
	"time"
)

// KeyRepository stores idempotency keys. Implementations must make
// AcquireLock atomic so two concurrent requests never both own a key.
type KeyRepository interface {
	// AcquireLock returns the stored key for (serviceId, method, path, key),
	// creating and locking it when absent. acquired is true when the caller
	// now owns the key: it was just created, or its previous owner released
	// it or let the lock go stale.
	AcquireLock(ctx context.Context, key *IdempotencyKey) (stored *IdempotencyKey, acquired bool, err error)

	// ReleaseLock unlocks an unfinished key so the request can be retried
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse marks the key completed and caches the response
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// Get retrieves a key, or ErrNotFound
	Get(ctx context.Context, serviceID, method, path, key string) (*IdempotencyKey, error)

	// Clean removes keys that expired before the given time
	Clean(ctx context.Context, before time.Time) (int64, error)

	EnsureIndexes(ctx context.Context) error
}
