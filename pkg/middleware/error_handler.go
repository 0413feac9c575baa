package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery-platform/inventory/pkg/errors"
)

// persistenceRetryAfter is sent with 503 responses, in seconds
const persistenceRetryAfter = 5

// APIErrorResponse is the body of every error response
type APIErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Timestamp string            `json:"timestamp"`
	Path      string            `json:"path"`
}

func newAPIErrorResponse(c *gin.Context, appErr *errors.AppError) APIErrorResponse {
	return APIErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

func writeAppError(c *gin.Context, appErr *errors.AppError) {
	if appErr.HTTPStatus == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(persistenceRetryAfter))
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, newAPIErrorResponse(c, appErr))
}

// ErrorHandler renders errors attached with c.Error when the handler
// wrote nothing itself
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := errors.MapDomainError(c.Errors.Last().Err)
		logError(logger, c, appErr)
		writeAppError(c, appErr)
	}
}

// ErrorResponder writes and logs error responses for one request
type ErrorResponder struct {
	ctx    *gin.Context
	logger *slog.Logger
}

// NewErrorResponder creates a new ErrorResponder
func NewErrorResponder(ctx *gin.Context, logger *slog.Logger) *ErrorResponder {
	return &ErrorResponder{ctx: ctx, logger: logger}
}

// RespondWithAppError sends an AppError response
func (r *ErrorResponder) RespondWithAppError(appErr *errors.AppError) {
	logError(r.logger, r.ctx, appErr)
	writeAppError(r.ctx, appErr)
}

// RespondBadRequest sends a 400 response
func (r *ErrorResponder) RespondBadRequest(message string) {
	r.RespondWithAppError(errors.ErrBadRequest(message))
}

// RespondConflict sends a 409 response
func (r *ErrorResponder) RespondConflict(message string) {
	r.RespondWithAppError(errors.ErrConflict(message))
}

// RespondError keeps an AppError's status and maps anything else
func (r *ErrorResponder) RespondError(err error) {
	r.RespondWithAppError(errors.MapDomainError(err))
}

func logError(logger *slog.Logger, c *gin.Context, appErr *errors.AppError) {
	level := slog.LevelWarn
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	attrs := []any{
		"code", appErr.Code,
		"message", appErr.Message,
		"status", appErr.HTTPStatus,
		"route", c.FullPath(),
		"method", c.Request.Method,
		"requestId", GetRequestID(c),
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}
	if len(appErr.Details) > 0 {
		attrs = append(attrs, "details", appErr.Details)
	}

	logger.Log(c.Request.Context(), level, "API error", attrs...)
}

// AbortWithAppError aborts the request with an AppError without logging it
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	writeAppError(c, appErr)
}
