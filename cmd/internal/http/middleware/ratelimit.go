package middleware

import (
	"context"
	"fmt"
	"net/http"
	"telenotes/cmd/internal/infrastructure/metrics"
	"telenotes/cmd/internal/utils/apierror"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

const rateLimitKeyPrefix = "telenotes:ratelimit:"

// RedisRateLimiterStore is a fixed window counter shared by every replica.
// When redis is unreachable requests are let through: admission control is
// not part of the core guarantees.
type RedisRateLimiterStore struct {
	client  *redis.Client
	limit   int64
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewRedisRateLimiterStore(client *redis.Client, perMinute int) *RedisRateLimiterStore {
	return &RedisRateLimiterStore{
		client:  client,
		limit:   int64(perMinute),
		window:  time.Minute,
		timeout: 500 * time.Millisecond,
		now:     time.Now,
	}
}

func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := s.windowKey(identifier)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("rate limiter store unavailable, allowing request: %v", err)
		return true, nil
	}
	return s.withinLimit(incr.Val()), nil
}

// windowKey names the counter of identifier for the current window. Keys
// change when the window rolls over, so old counters simply expire.
func (s *RedisRateLimiterStore) windowKey(identifier string) string {
	slot := s.now().UnixNano() / int64(s.window)
	return fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, identifier, slot)
}

func (s *RedisRateLimiterStore) withinLimit(count int64) bool {
	return count <= s.limit
}

// NewMemoryRateLimiterStore is used when no redis URL is configured.
func NewMemoryRateLimiterStore(perMinute int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
}

// NewRateLimiter rejects callers over their budget before authentication runs.
func NewRateLimiter(store middleware.RateLimiterStore, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, apierror.NewSimple(http.StatusForbidden, "Could not identify caller"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			metrics.RateLimited.Inc()
			return c.JSON(http.StatusTooManyRequests, apierror.TooManyRequestsError)
		},
	})
}
