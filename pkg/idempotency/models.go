package idempotency

import (
	"time"
)

// IdempotencyKey is a stored Idempotency-Key with the fingerprint of the
// first request that used it and, once finished, its response.
type IdempotencyKey struct {
	ID                 string `bson:"_id"`
	Key                string `bson:"key"`
	ServiceID          string `bson:"serviceId"`
	RequestPath        string `bson:"requestPath"`
	RequestMethod      string `bson:"requestMethod"`
	RequestFingerprint string `bson:"requestFingerprint"`

	LockedAt *time.Time `bson:"lockedAt,omitempty"`

	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// IsCompleted returns true if the request has been completed
func (ik *IdempotencyKey) IsCompleted() bool {
	return ik.CompletedAt != nil
}
