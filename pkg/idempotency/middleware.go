package idempotency

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/middleware"
)

const (
	// HeaderIdempotencyKey is the HTTP header name for the idempotency key
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderReplayed is set on responses served from a stored result
	HeaderReplayed = "Idempotency-Replayed"

	// ContextKeyIdempotencyKeyID is the gin context key holding the stored key id
	ContextKeyIdempotencyKeyID = "idempotency_key_id"
)

// Error codes returned by the middleware
const (
	CodeKeyRequired       = "IDEMPOTENCY_KEY_REQUIRED"
	CodeKeyInvalid        = "IDEMPOTENCY_KEY_INVALID"
	CodeParameterMismatch = "IDEMPOTENCY_PARAMETER_MISMATCH"
	CodeConcurrentRequest = "IDEMPOTENCY_CONCURRENT_REQUEST"
)

// responseWriter wraps gin.ResponseWriter to capture response data
type responseWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware replays the stored response for a repeated Idempotency-Key.
// Server errors are not stored: the key is released so the client can retry.
func Middleware(config *Config) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig(config.ServiceName))
	}
	logger = logger.WithComponent("idempotency")

	return func(c *gin.Context) {
		if config.OnlyMutating && !isMutatingMethod(c.Request.Method) {
			c.Next()
			return
		}

		key, err := ParseKey(c.GetHeader(HeaderIdempotencyKey), config.MaxKeyLength)
		switch {
		case stderrors.Is(err, ErrKeyRequired) && !config.RequireKey:
			c.Next()
			return
		case stderrors.Is(err, ErrKeyRequired):
			middleware.AbortWithAppError(c, errors.NewAppError(CodeKeyRequired,
				"Idempotency-Key header is required for this operation", http.StatusBadRequest))
			return
		case err != nil:
			middleware.AbortWithAppError(c, errors.NewAppError(CodeKeyInvalid, err.Error(), http.StatusBadRequest))
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		process(c, config, logger, key, Fingerprint(requestBody))
	}
}

func process(c *gin.Context, config *Config, logger *logging.Logger, key, fingerprint string) {
	ctx := c.Request.Context()
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	method := c.Request.Method
	log := logger.With("key", key, "path", path)

	now := time.Now().UTC()
	start := now
	candidate := &IdempotencyKey{
		Key:                key,
		ServiceID:          config.ServiceName,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      method,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	}

	stored, acquired, err := config.Repository.AcquireLock(ctx, candidate)
	if err != nil {
		log.Error("Failed to acquire idempotency key", "error", err)
		config.Metrics.recordStorageError(config.ServiceName, "acquire_lock")
		middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency storage").Wrap(err))
		return
	}
	config.Metrics.recordLockDuration(config.ServiceName, path, method, time.Since(start).Seconds())

	if !acquired {
		if stored.IsCompleted() {
			if stored.RequestFingerprint != fingerprint {
				log.Warn("Idempotency key reused with a different request body")
				config.Metrics.recordMismatch(config.ServiceName, path, method)
				middleware.AbortWithAppError(c, errors.NewAppError(CodeParameterMismatch,
					ErrParameterMismatch.Error(), http.StatusUnprocessableEntity))
				return
			}

			log.Info("Replaying stored response", "statusCode", stored.ResponseCode)
			config.Metrics.recordHit(config.ServiceName, path, method)
			for k, v := range stored.ResponseHeaders {
				c.Header(k, v)
			}
			c.Header(HeaderReplayed, "true")
			c.Data(stored.ResponseCode, "application/json", stored.ResponseBody)
			c.Abort()
			return
		}

		log.Warn("Idempotency key is locked by another request")
		config.Metrics.recordCollision(config.ServiceName, path, method)
		middleware.AbortWithAppError(c, errors.NewAppError(CodeConcurrentRequest,
			ErrConcurrentRequest.Error(), http.StatusConflict))
		return
	}

	c.Set(ContextKeyIdempotencyKeyID, stored.ID)
	config.Metrics.recordMiss(config.ServiceName, path, method)

	writer := &responseWriter{
		ResponseWriter: c.Writer,
		body:           &bytes.Buffer{},
		statusCode:     http.StatusOK,
	}
	c.Writer = writer

	c.Next()

	if writer.statusCode >= http.StatusInternalServerError {
		if err := config.Repository.ReleaseLock(ctx, stored.ID); err != nil {
			log.Error("Failed to release idempotency key", "error", err)
			config.Metrics.recordStorageError(config.ServiceName, "release_lock")
		}
		return
	}

	responseBody := writer.body.Bytes()
	if len(responseBody) > config.MaxResponseSize {
		log.Warn("Response too large to store", "size", len(responseBody), "maxSize", config.MaxResponseSize)
		responseBody = []byte(fmt.Sprintf(`{"error":"response too large to store","size":%d}`, len(responseBody)))
	}

	if err := config.Repository.StoreResponse(ctx, stored.ID, writer.statusCode, responseBody, responseHeaders(c)); err != nil {
		log.Error("Failed to store idempotency response", "error", err)
		config.Metrics.recordStorageError(config.ServiceName, "store_response")
	}
}

func isMutatingMethod(method string) bool {
	return method == http.MethodPost ||
		method == http.MethodPut ||
		method == http.MethodPatch ||
		method == http.MethodDelete
}

// responseHeaders keeps the first value of each response header
func responseHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)
	for k, v := range c.Writer.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}
