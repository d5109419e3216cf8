package util

import (
	"context"
	"errors"
	"time"
)

// Backoff returns the pause after the given failed attempt, counted from 1.
type Backoff func(attempt int) time.Duration

// ExponentialBackoff doubles base after each failed attempt up to max.
func ExponentialBackoff(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt && d < max; i++ {
			d *= 2
		}
		return min(d, max)
	}
}

// NoBackoff retries immediately.
func NoBackoff(int) time.Duration { return 0 }

// RetryWithContext calls fn up to maxTries times until it returns a nil error,
// sleeping according to backoff between attempts. If maxTries <= 0, it
// defaults to 1. Context errors stop the loop at once; otherwise the last
// error is returned.
func RetryWithContext[T any](ctx context.Context, maxTries int, backoff Backoff, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	if backoff == nil {
		backoff = NoBackoff
	}

	var (
		lastErr error
		zero    T
	)
	for attempt := 1; attempt <= maxTries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err

		if attempt == maxTries {
			break
		}
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, maxTries int, backoff Backoff, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, backoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
