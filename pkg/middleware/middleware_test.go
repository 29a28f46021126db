package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/redis"
)

var noopLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = Error(noopLogger)
	e.Use(Context())
	return e
}

func TestContext_SetsRequestValues(t *testing.T) {
	e := newTestEcho()

	var requestID, userID string
	e.GET("/ping", func(c echo.Context) error {
		requestID = appctx.GetRequestID(c.Request().Context())
		userID = appctx.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "alice", userID)
}

func TestContext_KeepsIncomingRequestID(t *testing.T) {
	e := newTestEcho()
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, appctx.GetRequestID(c.Request().Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Body.String())
}

type conflictErr struct{}

func (conflictErr) Error() string { return "conflict" }
func (conflictErr) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, "stale version").AddMetaValue("currentVersion", 2)
}

func TestError_Rendering(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{name: "http error", err: httperror.NewHTTPError(http.StatusNotFound, "unknown config document"), code: http.StatusNotFound, message: "unknown config document"},
		{name: "converter", err: conflictErr{}, code: http.StatusConflict, message: "stale version"},
		{name: "wrapped http error", err: fmt.Errorf("load: %w", httperror.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")), code: http.StatusTooManyRequests, message: "rate limit exceeded"},
		{name: "echo error", err: echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), code: http.StatusMethodNotAllowed, message: "nope"},
		{name: "internal error is opaque", err: errors.New("pq: password authentication failed"), code: http.StatusInternalServerError, message: "Internal Server Error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/fail", func(c echo.Context) error { return tc.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

			assert.Equal(t, tc.code, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.message, resp.Message)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestError_BodyCarriesMessageAndMeta(t *testing.T) {
	e := newTestEcho()
	e.GET("/fail", func(c echo.Context) error { return conflictErr{} })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stale version", body["message"])
	assert.NotContains(t, body["message"], "HTTP Error")
	assert.Equal(t, map[string]any{"currentVersion": float64(2)}, body["meta"])
}

type fakeLimiter struct {
	result *redis.RateLimitResult
	err    error
	keys   []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int64, _ time.Duration) (*redis.RateLimitResult, error) {
	l.keys = append(l.keys, key)
	return l.result, l.err
}

func newRateLimitedEcho(limiter RateLimiter) *echo.Echo {
	e := newTestEcho()
	e.Use(WriteRateLimit(limiter, 5, time.Minute, noopLogger))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/config", ok)
	e.PUT("/config", ok)
	return e
}

func TestWriteRateLimit(t *testing.T) {
	t.Run("reads are not limited", func(t *testing.T) {
		limiter := &fakeLimiter{result: &redis.RateLimitResult{Allowed: false}}
		rec := httptest.NewRecorder()
		newRateLimitedEcho(limiter).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, limiter.keys)
	})

	t.Run("allowed write", func(t *testing.T) {
		limiter := &fakeLimiter{result: &redis.RateLimitResult{Allowed: true, Remaining: 4}}
		req := httptest.NewRequest(http.MethodPut, "/config", nil)
		req.Header.Set(HeaderUserID, "alice")
		rec := httptest.NewRecorder()
		newRateLimitedEcho(limiter).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, []string{"writes:alice"}, limiter.keys)
	})

	t.Run("rejected write", func(t *testing.T) {
		limiter := &fakeLimiter{result: &redis.RateLimitResult{Allowed: false, RetryIn: 12 * time.Second}}
		rec := httptest.NewRecorder()
		newRateLimitedEcho(limiter).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/config", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "12", rec.Header().Get("Retry-After"))
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		limiter := &fakeLimiter{err: errors.New("redis down")}
		rec := httptest.NewRecorder()
		newRateLimitedEcho(limiter).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/config", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLogger_RecordsLatency(t *testing.T) {
	e := echo.New()
	e.Use(Context())
	e.Use(Logger(noopLogger))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/v1/health/live", ok)
	e.GET("/api/v1/config/:key", ok)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/config/pricing_data", nil))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.HTTPRequestDuration), 2)
	assert.True(t, quietRoute("/api/v1/health/live"))
	assert.True(t, quietRoute("/metrics"))
	assert.False(t, quietRoute("/api/v1/config/:key"))
}

func TestUserID_Truncates(t *testing.T) {
	assert.Equal(t, "alice", userID("  alice "))
	long := strings.Repeat("é", 100)
	got := userID(long)
	assert.LessOrEqual(t, len(got), maxUserIDLength)
	assert.True(t, utf8.ValidString(got))
}
