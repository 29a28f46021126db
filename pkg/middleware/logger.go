package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/metrics"
)

// Logger writes one access log line per request and records its latency.
// Probe and scrape routes are only timed.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			elapsed := time.Since(start)

			req := c.Request()
			res := c.Response()
			route := c.Path()
			status := strconv.Itoa(res.Status)

			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route, status).Observe(elapsed.Seconds())

			if quietRoute(route) {
				return nil
			}

			ctx := req.Context()
			fields := map[string]any{
				"request_id":    context.GetRequestID(ctx),
				"user_id":       context.GetUserID(ctx),
				"request":       context.GetRoute(ctx),
				"remote_ip":     context.GetRemoteIP(ctx),
				"route":         route,
				"status":        res.Status,
				"response_time": elapsed,
				"response_size": res.Size,
				"user_agent":    req.UserAgent(),
			}
			if key := c.Param("key"); key != "" {
				fields["config_key"] = key
			}
			if version := res.Header().Get(HeaderDocumentVersion); version != "" {
				fields["document_version"] = version
			}

			entry := logger.WithContext(ctx).WithFields(fields)
			if res.Status >= http.StatusInternalServerError {
				entry.Warn("Request failed")
			} else {
				entry.Info("Request")
			}

			return nil
		}
	}
}

func quietRoute(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/api/v1/health")
}
