package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/errors"
	"github.com/kbukum/flowrun/resilience"
)

// RateLimitConfig configures per-client token bucket limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per key. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the bucket size. Defaults to RequestsPerSecond rounded up.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// Enabled reports whether limiting is configured.
func (c RateLimitConfig) Enabled() bool { return c.RequestsPerSecond > 0 }

// RateLimit returns a Gin middleware that keeps one resilience.RateLimiter
// per key and answers 429 RATE_LIMITED when the bucket is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond + 0.999)
	}

	limiters := &keyedLimiters{cfg: cfg, items: make(map[string]*keyedLimiter)}

	return func(c *gin.Context) {
		if !limiters.get(cfg.KeyFunc(c)).Allow() {
			appErr := errors.RateLimited("too many requests")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

type keyedLimiter struct {
	*resilience.RateLimiter
	lastSeen time.Time
}

type keyedLimiters struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	items     map[string]*keyedLimiter
	lastSweep time.Time
}

const idleLimiterTTL = 10 * time.Minute

func (k *keyedLimiters) get(key string) *keyedLimiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	if now.Sub(k.lastSweep) > idleLimiterTTL {
		for id, l := range k.items {
			if now.Sub(l.lastSeen) > idleLimiterTTL {
				delete(k.items, id)
			}
		}
		k.lastSweep = now
	}

	l, ok := k.items[key]
	if !ok {
		l = &keyedLimiter{RateLimiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "http:" + key,
			Rate:  k.cfg.RequestsPerSecond,
			Burst: k.cfg.Burst,
		})}
		k.items[key] = l
	}
	l.lastSeen = now
	return l
}
