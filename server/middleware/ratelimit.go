package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/resilience"
)

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RequestsPerMinute is the sustained rate per client.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gte=0"`
	Burst             int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

func (c *RateLimitConfig) ApplyDefaults() {
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 60
	}
	if c.Burst == 0 {
		c.Burst = 10
	}
}

// KeyFunc picks the bucket for a request.
type KeyFunc func(*gin.Context) string

// ClientIPKey buckets by client address.
func ClientIPKey(c *gin.Context) string { return c.ClientIP() }

// RateLimiter is the gin middleware plus the limiter it drains.
type RateLimiter struct {
	limiter *resilience.KeyedRateLimiter
	key     KeyFunc
}

func NewRateLimiter(cfg RateLimitConfig, key KeyFunc) *RateLimiter {
	cfg.ApplyDefaults()
	if key == nil {
		key = ClientIPKey
	}
	return &RateLimiter{
		limiter: resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Rate:  float64(cfg.RequestsPerMinute) / 60,
			Burst: cfg.Burst,
		}),
		key: key,
	}
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.Allow(rl.key(c)) {
			err := apperrors.RateLimited()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
			return
		}
		c.Next()
	}
}

// PruneEvery drops idle buckets until ctx ends.
func (rl *RateLimiter) PruneEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.limiter.Prune()
		}
	}
}
