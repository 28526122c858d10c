package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/util"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = 15 * time.Minute
)

// RateLimitConfig bounds how often a single client may hit an endpoint.
// Zero values fall back to 5 requests per 15 minutes.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

func rateLimitKey(endpoint, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// RateLimiter counts requests per endpoint and client IP in Redis. Requests
// pass when no Redis client is configured, and when the counter store
// errors: an outage there must not take the portal down with it.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit == 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window == 0 {
		cfg.Window = defaultRateWindow
	}

	return func(c *gin.Context) {
		endpoint := c.Request.URL.Path
		clientIP := c.ClientIP()

		count, err := bumpRequestCount(rateLimitKey(endpoint, clientIP), cfg.Window)
		switch {
		case err != nil:
			util.LogSecurityEvent(util.SecurityEvent{
				EventType: util.EventSuspiciousActivity,
				IP:        clientIP,
				Message:   fmt.Sprintf("Rate limit check failed: %v", err),
			})
		case count > int64(cfg.Limit):
			util.LogRateLimitExceeded(util.RateLimitParams{IP: clientIP, Endpoint: endpoint})
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: errors.New("rate limit exceeded"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// bumpRequestCount increments the window counter for key and returns the
// new count. Zero means no counter store is configured.
func bumpRequestCount(key string, window time.Duration) (int64, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, nil
	}

	ctx := context.Background()
	pipe := rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return incr.Val(), nil
}

// ResetRateLimit drops the counter for a client and endpoint.
func ResetRateLimit(clientIP, endpoint string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return errors.New("redis not available")
	}
	return rdb.Del(context.Background(), rateLimitKey(endpoint, clientIP)).Err()
}
