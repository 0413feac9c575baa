package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrKeyRequired       = errors.New("idempotency key is required for this operation")
	ErrKeyInvalid        = errors.New("idempotency key may only contain letters, digits, '-' and '_'")
	ErrKeyTooLong        = errors.New("idempotency key is too long")
	ErrParameterMismatch = errors.New("idempotency key was already used with a different request body")
	ErrConcurrentRequest = errors.New("a request with this idempotency key is still being processed")
	ErrNotFound          = errors.New("idempotency key not found")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ParseKey trims the header value and checks it. An empty header returns
// ErrKeyRequired.
func ParseKey(header string, maxLength int) (string, error) {
	key := strings.TrimSpace(header)
	switch {
	case key == "":
		return "", ErrKeyRequired
	case len(key) > maxLength:
		return "", ErrKeyTooLong
	case !keyPattern.MatchString(key):
		return "", ErrKeyInvalid
	}
	return key, nil
}

// Fingerprint hashes a request body. JSON bodies are re-encoded first so a
// retry that only reorders fields or changes whitespace still matches.
func Fingerprint(body []byte) string {
	var doc any
	if err := json.Unmarshal(body, &doc); err == nil {
		if canonical, err := json.Marshal(doc); err == nil {
			body = canonical
		}
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
