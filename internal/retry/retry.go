// Package retry runs an operation until it succeeds under an explicit policy.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a fixed-interval retry policy.
type Policy struct {
	Interval time.Duration
	// MaxAttempts bounds the total number of attempts; 0 retries until ctx is done.
	MaxAttempts int
}

func (p Policy) Unbounded() bool { return p.MaxAttempts <= 0 }

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Interval)
	if !p.Unbounded() {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Do calls op until it returns nil, the policy runs out of attempts, or ctx
// is done. The error of the last attempt is returned when attempts run out.
// Wrap an error with backoff.Permanent to stop retrying immediately.
func Do(ctx context.Context, logger *slog.Logger, name string, p Policy, op func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return op(ctx)
	}, p.backOff(ctx), func(err error, next time.Duration) {
		logger.Warn(name+" failed",
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return ctxErr
		}
		return err
	}

	if attempt > 1 {
		logger.Info(name+" succeeded", "attempts", attempt)
	}
	return nil
}
