// Package retry is the single exponential-backoff helper used for per-asset
// retrieval.
//
// A [Policy] describes how many attempts an operation gets and the base delay.
// The delay before retry i (0-indexed) is BaseDelay * 2^i, without jitter, so
// the default policy waits 1s then 2s between three attempts.
//
//	err := retry.Do(ctx, retry.Default(), func(ctx context.Context) error {
//	    return fetch(ctx)
//	}, nil)
//
// Wrap an error with [Permanent] to stop retrying immediately.
package retry
