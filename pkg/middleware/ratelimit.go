package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// RateLimiter is satisfied by *redis.RateLimiter
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redis.RateLimitResult, error)
}

// WriteRateLimit throttles PUT and POST requests per user, or per client IP
// when no user is given. Limiter failures let the request through.
func WriteRateLimit(limiter RateLimiter, limit int64, window time.Duration, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if limiter == nil || limit <= 0 || (method != http.MethodPut && method != http.MethodPost) {
				return next(c)
			}

			ctx := c.Request().Context()
			subject := appctx.GetUserID(ctx)
			if subject == "" {
				subject = "ip:" + c.RealIP()
			}
			key := "writes:" + subject

			result, err := limiter.Allow(ctx, key, limit, window)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("Rate limiter unavailable, allowing request")
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

			if !result.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(c.Path()).Inc()
				retry := int(result.RetryIn.Round(time.Second).Seconds())
				if retry < 1 {
					retry = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return httperror.NewHTTPError(http.StatusTooManyRequests, "too many write requests")
			}

			return next(c)
		}
	}
}
