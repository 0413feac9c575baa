package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := logging.DefaultConfig("test")
	cfg.Output = io.Discard
	router := gin.New()
	Setup(router, DefaultConfig("test", logging.New(cfg)))
	return router
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestContext_AssignsIDs(t *testing.T) {
	router := newTestRouter(t)
	var seenRequest, seenCorrelation string
	router.GET("/items", func(c *gin.Context) {
		seenRequest, seenCorrelation = GetRequestID(c), GetCorrelationID(c)
		c.Status(http.StatusNoContent)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/items", nil))

	require.NotEmpty(t, seenRequest)
	assert.Equal(t, seenRequest, seenCorrelation)
	assert.Equal(t, seenRequest, w.Header().Get(HeaderRequestID))
	assert.Equal(t, seenRequest, w.Header().Get(HeaderCorrelationID))

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	req.Header.Set(HeaderCorrelationID, "shift-42")
	w = serve(router, req)
	assert.Equal(t, "req-7", seenRequest)
	assert.Equal(t, "shift-42", seenCorrelation)
	assert.Equal(t, "shift-42", w.Header().Get(HeaderCorrelationID))
}

func TestErrorResponder(t *testing.T) {
	router := newTestRouter(t)
	logger := slogDiscard()
	router.GET("/persist", func(c *gin.Context) {
		NewErrorResponder(c, logger).RespondError(errors.ErrPersistence("").Wrap(stderrors.New("write conflict")))
	})
	router.GET("/missing", func(c *gin.Context) {
		NewErrorResponder(c, logger).RespondError(stderrors.New("recipe not found"))
	})
	router.GET("/boom", func(c *gin.Context) {
		NewErrorResponder(c, logger).RespondError(stderrors.New("connection reset"))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/persist", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	body := decodeError(t, w)
	assert.Equal(t, errors.CodePersistenceFailed, body.Code)
	assert.Equal(t, "/persist", body.Path)
	assert.NotEmpty(t, body.RequestID)
	assert.NotContains(t, w.Body.String(), "write conflict")

	w = serve(router, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))

	w = serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, w).Code)
}

func TestErrorHandler_RendersAttachedError(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/items/:id", func(c *gin.Context) {
		_ = c.Error(errors.ErrNotFoundWithID("inventory item", c.Param("id")))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/items/9", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]string{"id": "9"}, decodeError(t, w).Details)
}

func TestRecovery(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/panic", func(c *gin.Context) { panic("oven on fire") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, w).Code)
}

func TestRouteErrors(t *testing.T) {
	router := newTestRouter(t)
	router.HandleMethodNotAllowed = true
	router.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeError(t, w).Code)

	w = serve(router, httptest.NewRequest(http.MethodDelete, "/items", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, w).Code)
}

func TestCORS_Preflight(t *testing.T) {
	router := newTestRouter(t)
	router.POST("/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := serve(router, httptest.NewRequest(http.MethodOptions, "/orders", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestReadinessCheck(t *testing.T) {
	router := newTestRouter(t)
	healthy := true
	router.GET("/ready", ReadinessCheck("test", map[string]func(context.Context) error{
		"mongodb": func(context.Context) error { return nil },
		"rollover-scheduler": func(context.Context) error {
			if healthy {
				return nil
			}
			return stderrors.New("rollover scheduler is not running")
		},
	}))

	type readiness struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	read := func() (int, readiness) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
		var body readiness
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	code, body := read()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"mongodb": "ok", "rollover-scheduler": "ok"}, body.Checks)

	healthy = false
	code, body = read()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "ok", body.Checks["mongodb"])
	assert.Equal(t, "rollover scheduler is not running", body.Checks["rollover-scheduler"])
}

type dateQuery struct {
	From string  `form:"from" json:"from" binding:"omitempty,iso_date"`
	Qty  float64 `form:"qty" json:"qty" binding:"qty"`
}

func TestBindQueryAndValidate(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/records", func(c *gin.Context) {
		var q dateQuery
		if appErr := BindQueryAndValidate(c, &q); appErr != nil {
			NewErrorResponder(c, slogDiscard()).RespondWithAppError(appErr)
			return
		}
		c.JSON(http.StatusOK, q)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/records?from=2026-10-15&qty=2.5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/records?from=15/10/2026&qty=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errors.CodeValidationError, body.Code)
	assert.Equal(t, "must be a date in YYYY-MM-DD format", body.Details["from"])
	assert.Equal(t, "must be a non-negative number", body.Details["qty"])
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Brown Sugar", SanitizeString("  Brown\x00 Sugar \t"))
	assert.Equal(t, "", SanitizeString(strings.Repeat(" ", 3)))
}
