// Package retry re-runs a fallible operation a bounded number of times.
// There is no backoff: the one caller that needs it is absorbing address
// collisions on insert, where a fresh attempt almost always succeeds.
package retry

import "context"

// Do invokes op up to attempts times, stopping at the first success. Values
// below 1 mean a single attempt. The error from the final attempt is
// returned; earlier ones are discarded. The context is checked between
// attempts so a cancelled request does not keep hammering the store.
func Do[T any](ctx context.Context, attempts int, op func(ctx context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var result T
	var err error
	for ; attempts > 0; attempts-- {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
	}
	return result, err
}
