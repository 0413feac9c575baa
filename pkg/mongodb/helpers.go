package mongodb

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SortAscending creates an ascending sort option
func SortAscending(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNotFound reports whether err means no document matched
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
