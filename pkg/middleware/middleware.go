package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
)

// Config holds middleware configuration
type Config struct {
	Logger         *logging.Logger
	ServiceName    string
	AllowedOrigins string
	TrustedProxies []string
	RequestTimeout time.Duration
}

// DefaultConfig returns a default middleware configuration
func DefaultConfig(serviceName string, logger *logging.Logger) *Config {
	return &Config{
		Logger:         logger,
		ServiceName:    serviceName,
		AllowedOrigins: "*",
		RequestTimeout: 30 * time.Second,
	}
}

// Setup installs the standard chain on router. Order matters: request ids
// are assigned before anything logs, and recovery wraps everything else.
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(config.TrustedProxies)
	}

	router.Use(
		RequestContext(),
		Recovery(config.Logger),
		AccessLog(config.Logger.Logger),
		InputSanitizer(),
		CORS(config.AllowedOrigins),
	)
	if config.RequestTimeout > 0 {
		router.Use(Timeout(config.RequestTimeout))
	}
	router.Use(ContentType(), ErrorHandler(config.Logger.Logger))

	router.NoRoute(routeError("ROUTE_NOT_FOUND", "The requested resource was not found", http.StatusNotFound))
	router.NoMethod(routeError("METHOD_NOT_ALLOWED", "The request method is not supported for this resource", http.StatusMethodNotAllowed))
}

// CORS lets the bakery front office, served from another origin, call the API
func CORS(allowedOrigins string) gin.HandlerFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowedOrigins)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID, X-Correlation-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-Correlation-ID, Idempotency-Replayed, Retry-After")
		h.Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Timeout bounds the request context so slow storage calls are cancelled
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// HealthCheck reports liveness only
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	}
}

// ReadinessCheck runs every named check and reports each result. Any failure
// makes the whole service not ready.
func ReadinessCheck(serviceName string, checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		c.JSON(code, gin.H{"status": status, "service": serviceName, "checks": results})
	}
}

func routeError(code, message string, status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		AbortWithAppError(c, errors.NewAppError(code, message, status))
	}
}
