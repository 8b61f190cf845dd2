package faceauth

import (
	"context"
	"time"

	"faceguard.io/infrastructure/logger"
)

// RetryPolicy retries transient provider failures and timeouts with
// exponential backoff. Deterministic failures are never retried.
type RetryPolicy struct {
	Attempts    int
	BackoffBase time.Duration
}

func (policy RetryPolicy) backoff(attempt int) time.Duration {
	return policy.BackoffBase << attempt
}

// Do runs fn, retrying up to Attempts additional times while the error stays
// retryable and the context stays alive.
func (policy RetryPolicy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) || attempt >= policy.Attempts {
			return lastErr
		}
		logger.Warning("retrying transient failure", logger.LoggerOptions{
			Key:  "operation",
			Data: operation,
		}, logger.LoggerOptions{
			Key:  "attempt",
			Data: attempt + 1,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: lastErr,
		})
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(policy.backoff(attempt)):
		}
	}
}

// doWithRetry adapts Do to functions that return a value.
func doWithRetry[T any](ctx context.Context, policy RetryPolicy, operation string, fn func(ctx context.Context) (*T, error)) (*T, error) {
	var result *T
	err := policy.Do(ctx, operation, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
