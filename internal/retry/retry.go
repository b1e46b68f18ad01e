package retry

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Policy configures retry behaviour.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	// Default: 3
	Attempts int

	// BaseDelay is the wait before the first retry. Each later retry doubles it.
	// Default: 1s
	BaseDelay time.Duration
}

// Default returns the policy used for asset retrieval.
func Default() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Second,
	}
}

// Delay returns the wait before retry i (0-indexed).
func (p Policy) Delay(i int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(i))
}

// NotifyFunc is called after a failed attempt that will be retried.
// attempt is 1-based; wait is the delay before the next attempt.
type NotifyFunc func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, the policy is exhausted, op returns a
// Permanent error, or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify NotifyFunc) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}

	attempt := 0
	operation := func() error {
		attempt++
		return op(ctx)
	}

	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}
	}

	return backoff.RetryNotify(operation, newBackOff(ctx, p), n)
}

// Permanent wraps err so that Do returns it without further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func newBackOff(ctx context.Context, p Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.Delay(p.Attempts)
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.Attempts-1)), ctx)
}
