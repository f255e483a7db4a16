package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/richxcame/navigator/pkg/logger"
	"go.uber.org/zap"
)

// RetryConfig defines the configuration for retry behavior
type RetryConfig struct {
	// MaxAttempts counts the initial attempt
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// EnableJitter draws each wait uniformly from [0, backoff)
	EnableJitter bool
	// RetryableChecker overrides the default classification when set
	RetryableChecker func(error) bool
}

// DefaultRetryConfig suits interactive upstream calls: three attempts within
// roughly a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// Retry runs op until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. Metrics are labelled with name.
func Retry[T any](ctx context.Context, cfg RetryConfig, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if name == "" {
		name = "unknown"
	}

	start := time.Now()
	finish := func(attempts int, ok bool) {
		recordRetryOperation(name, time.Since(start).Seconds(), attempts, ok)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			finish(attempt, false)
			return zero, err
		}

		result, err := op(ctx)
		recordRetryAttempt(name, err == nil)
		if err == nil {
			if attempt > 1 {
				logger.WithContext(ctx).Info("operation succeeded after retry",
					zap.String("operation", name),
					zap.Int("attempt", attempt),
				)
			}
			finish(attempt, true)
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err, cfg) {
			finish(attempt, false)
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := backoff(attempt, cfg)
		recordRetryBackoff(name, wait.Seconds())
		logger.WithContext(ctx).Debug("retrying operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			finish(attempt, false)
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	logger.WithContext(ctx).Warn("operation failed after all retry attempts",
		zap.String("operation", name),
		zap.Int("attempts", cfg.MaxAttempts),
		zap.Error(lastErr),
	)
	finish(cfg.MaxAttempts, false)
	return zero, lastErr
}

// backoff is InitialBackoff * Multiplier^(attempt-1), capped at MaxBackoff.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if cfg.MaxBackoff > 0 && d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	wait := time.Duration(d)
	if cfg.EnableJitter && wait > 0 {
		wait = time.Duration(rand.Int63n(int64(wait)))
	}
	return wait
}

func shouldRetry(err error, cfg RetryConfig) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if cfg.RetryableChecker != nil {
		return cfg.RetryableChecker(err)
	}
	return true
}

// IsRetryableHTTPStatus reports whether a response status is worth retrying:
// request timeout, rate limiting and upstream 5xx failures.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
