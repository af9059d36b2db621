package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig is an exponential backoff policy. Zero fields take the
// values of DefaultRetryConfig.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// Jitter spreads each delay by up to this fraction either way.
	Jitter  float64
	RetryIf func(error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig makes 3 attempts, waiting 100ms then 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries everything except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func orDefault[T int | float64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (cfg RetryConfig) normalized() RetryConfig {
	d := DefaultRetryConfig()
	cfg.MaxAttempts = orDefault(cfg.MaxAttempts, d.MaxAttempts)
	cfg.InitialBackoff = orDefault(cfg.InitialBackoff, d.InitialBackoff)
	cfg.MaxBackoff = orDefault(cfg.MaxBackoff, d.MaxBackoff)
	cfg.BackoffFactor = orDefault(cfg.BackoffFactor, d.BackoffFactor)
	if cfg.RetryIf == nil {
		cfg.RetryIf = d.RetryIf
	}
	return cfg
}

// backoff is the delay that follows failed attempt n (1-based), capped at
// MaxBackoff after jitter.
func (cfg RetryConfig) backoff(n int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(n-1))
	if cfg.Jitter > 0 {
		d *= 1 + cfg.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(min(d, float64(cfg.MaxBackoff)))
}

// Retry calls fn until it succeeds, returns an error RetryIf rejects, or
// runs out of attempts. The last result is returned with its error so a
// response that carried a retryable status can still be inspected. A
// context that ends first wins over any result.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.normalized()
	var zero T
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, err := fn()
		if err == nil || n == cfg.MaxAttempts || !cfg.RetryIf(err) {
			return res, err
		}
		wait := cfg.backoff(n)
		if cfg.OnRetry != nil {
			cfg.OnRetry(n, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
