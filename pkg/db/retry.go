package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// RetryPolicy bounds the transient-conflict retries of WithRetryTx.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry runs before each wait with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p RetryPolicy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return DefaultBaseDelay
	}
	return p.BaseDelay
}

// Backoff returns the wait after the given failed attempt: attempt² × base.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * p.baseDelay()
}

// WithRetryTx runs fn in its own transaction and repeats it after transient
// conflicts. Every attempt starts a fresh transaction, so at most one attempt
// commits. The context is only observed between attempts.
func (c *Client) WithRetryTx(ctx context.Context, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	var (
		attempt int
		lastErr error
	)

	backoff := retry.WithMaxRetries(uint64(policy.attempts()-1), retry.BackoffFunc(func() (time.Duration, bool) {
		delay := policy.Backoff(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, lastErr)
		}
		return delay, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.WithTx(ctx, fn)
		if err != nil && IsRetryable(err) {
			lastErr = err
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	return err
}
