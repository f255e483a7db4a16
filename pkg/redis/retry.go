package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/navigator/pkg/resilience"
)

// redisRetryConfig keeps retries well inside an interactive request budget.
var redisRetryConfig = resilience.RetryConfig{
	MaxAttempts:       3,
	InitialBackoff:    50 * time.Millisecond,
	MaxBackoff:        500 * time.Millisecond,
	BackoffMultiplier: 2.0,
	EnableJitter:      true,
	RetryableChecker:  isRedisRetryable,
}

// RetryableOperation executes a Redis operation with retry logic for transient failures
func RetryableOperation[T any](ctx context.Context, name string, operation func(context.Context) (T, error)) (T, error) {
	return resilience.Retry(ctx, redisRetryConfig, name, operation)
}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"pool timeout",
	"unexpected eof",
	"server closed",
	"loading",
	"busy",
	"tryagain",
	"clusterdown",
}

// isRedisRetryable retries network failures and the server's own transient
// replies. Cache misses are never retried.
func isRedisRetryable(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
