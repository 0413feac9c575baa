package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgmongo "github.com/bakery-platform/inventory/pkg/mongodb"
)

const idempotencyKeysCollection = "idempotency_keys"

// MongoKeyRepository implements KeyRepository using MongoDB
type MongoKeyRepository struct {
	collection  *pkgmongo.InstrumentedCollection
	lockTimeout time.Duration
	now         func() time.Time
}

// NewMongoKeyRepository creates a MongoDB-backed key repository. A lock older
// than lockTimeout is considered abandoned and may be taken over.
func NewMongoKeyRepository(client *pkgmongo.InstrumentedClient, lockTimeout time.Duration) *MongoKeyRepository {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &MongoKeyRepository{
		collection:  client.Collection(idempotencyKeysCollection),
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func scopeFilter(serviceID, method, path, key string) bson.M {
	return bson.M{
		"serviceId":     serviceID,
		"requestMethod": method,
		"requestPath":   path,
		"key":           key,
	}
}

// AcquireLock creates the key locked, or returns the stored one. An
// unfinished key whose lock was released or went stale is taken over.
func (r *MongoKeyRepository) AcquireLock(ctx context.Context, key *IdempotencyKey) (*IdempotencyKey, bool, error) {
	var (
		stored *IdempotencyKey
		err    error
	)
	// a concurrent upsert on the same key can lose the unique index race once
	for attempt := 0; attempt < 2; attempt++ {
		stored, err = r.upsert(ctx, key)
		if err == nil || !pkgmongo.IsDuplicateKey(err) {
			break
		}
	}
	if err != nil {
		return nil, false, err
	}

	if stored.ID == key.ID {
		return stored, true, nil
	}
	if stored.IsCompleted() {
		return stored, false, nil
	}
	if stored.LockedAt != nil && r.now().Sub(*stored.LockedAt) < r.lockTimeout {
		return stored, false, nil
	}
	return r.takeOver(ctx, stored, key.RequestFingerprint)
}

func (r *MongoKeyRepository) upsert(ctx context.Context, key *IdempotencyKey) (*IdempotencyKey, error) {
	now := r.now()
	key.ID = uuid.NewString()
	key.LockedAt = &now

	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                key.ID,
			"requestFingerprint": key.RequestFingerprint,
			"lockedAt":           now,
			"createdAt":          key.CreatedAt,
			"expiresAt":          key.ExpiresAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored IdempotencyKey
	filter := scopeFilter(key.ServiceID, key.RequestMethod, key.RequestPath, key.Key)
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// takeOver locks stored for a new owner unless another request got there first
func (r *MongoKeyRepository) takeOver(ctx context.Context, stored *IdempotencyKey, fingerprint string) (*IdempotencyKey, bool, error) {
	filter := bson.M{"_id": stored.ID, "completedAt": bson.M{"$exists": false}}
	if stored.LockedAt == nil {
		filter["lockedAt"] = bson.M{"$exists": false}
	} else {
		filter["lockedAt"] = *stored.LockedAt
	}
	update := bson.M{"$set": bson.M{"lockedAt": r.now(), "requestFingerprint": fingerprint}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var owned IdempotencyKey
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&owned)
	if pkgmongo.IsNotFound(err) {
		current, getErr := r.getByID(ctx, stored.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &owned, true, nil
}

// ReleaseLock releases the lock on an unfinished key
func (r *MongoKeyRepository) ReleaseLock(ctx context.Context, keyID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": keyID, "completedAt": bson.M{"$exists": false}},
		bson.M{"$unset": bson.M{"lockedAt": ""}},
	)
	return err
}

// StoreResponse stores the final response for a completed request
func (r *MongoKeyRepository) StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error {
	update := bson.M{
		"$set": bson.M{
			"responseCode":    responseCode,
			"responseBody":    responseBody,
			"responseHeaders": headers,
			"completedAt":     r.now(),
		},
		"$unset": bson.M{"lockedAt": ""},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": keyID}, update)
	return err
}

// Get retrieves a key by its scope
func (r *MongoKeyRepository) Get(ctx context.Context, serviceID, method, path, key string) (*IdempotencyKey, error) {
	var result IdempotencyKey
	err := r.collection.FindOne(ctx, scopeFilter(serviceID, method, path, key)).Decode(&result)
	if pkgmongo.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *MongoKeyRepository) getByID(ctx context.Context, id string) (*IdempotencyKey, error) {
	var result IdempotencyKey
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if pkgmongo.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Clean removes expired idempotency keys. The TTL index does the same in
// the background; Clean is for callers that need it done now.
func (r *MongoKeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the scope unique index and the expiry TTL index
func (r *MongoKeyRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "serviceId", Value: 1},
				{Key: "requestMethod", Value: 1},
				{Key: "requestPath", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_scope_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	}

	_, err := r.collection.CreateIndexes(ctx, indexes)
	return err
}
