/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with backoff retries. It's used to wrap cache value factories
// that talk to unreliable sources; the cache itself never retries.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable tells if an error is retryable as opposed to persistent.
type IsRetryable func(error) bool

// OnRetry is called after every failed attempt that is going to be retried.
type OnRetry func(err error, delay time.Duration)

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc is an adapter to allow the use of ordinary functions as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// ExponentialPolicy retries up to maxRetries times (unlimited if not positive)
// with exponentially growing delays starting from initialInterval.
func ExponentialPolicy(initialInterval time.Duration, maxRetries int) Policy {
	return PolicyFunc(func() backoff.BackOff {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = initialInterval
		return limitRetries(eb, maxRetries)
	})
}

// ConstantPolicy retries up to maxRetries times (unlimited if not positive) with the same delay.
func ConstantPolicy(interval time.Duration, maxRetries int) Policy {
	return PolicyFunc(func() backoff.BackOff {
		return limitRetries(backoff.NewConstantBackOff(interval), maxRetries)
	})
}

func limitRetries(b backoff.BackOff, maxRetries int) backoff.BackOff {
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxRetries))
	}
	b.Reset()
	return b
}

// Do calls fn until it succeeds, returns a non-retryable error, the policy gives up or ctx is done.
// Nil isRetryable means every error is retryable. onRetry may be nil.
func Do[T any](
	ctx context.Context, policy Policy, isRetryable IsRetryable, onRetry OnRetry, fn func(ctx context.Context) (T, error),
) (T, error) {
	bctx := backoff.WithContext(policy.NewBackOff(), ctx)
	op := func() (T, error) {
		res, err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	var notify backoff.Notify
	if onRetry != nil {
		notify = backoff.Notify(onRetry)
	}
	return backoff.RetryNotifyWithData(op, bctx, notify)
}
