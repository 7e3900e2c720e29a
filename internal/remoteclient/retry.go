package remoteclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// doWithRetry runs spec through do, retrying only Transient failures
// using an exponential-full-jitter policy (base 250ms, cap 5s, at most
// maxRetries retries), and returns the final CallError (nil on
// success). Retries reuse the same idempotency key so a duplicate
// conflict response after a retry can be folded into success by the
// caller.
func (c *Client) doWithRetry(ctx context.Context, spec requestSpec, out interface{}) *CallError {
	idempotencyKey := ""
	if spec.idempotent {
		idempotencyKey = newIdempotencyKey()
	}

	var lastErr *CallError
	attempt := 0

	operation := func() error {
		attempt++
		lastErr = c.do(ctx, spec, idempotencyKey, out)
		if lastErr == nil {
			return nil
		}
		lastErr.Attempt = attempt
		if lastErr.Kind.Retryable() {
			return lastErr
		}
		return backoff.Permanent(lastErr)
	}

	policy := backoff.WithContext(newBackOff(c.maxRetries), ctx)
	_ = backoff.Retry(operation, policy)

	return lastErr
}

// newBackOff builds the retry policy: exponential with full jitter,
// base 250ms, cap 5s, bounded to maxRetries attempts beyond the first.
func newBackOff(maxRetries int) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.RandomizationFactor = 1.0 // full jitter
	eb.Multiplier = 2.0
	eb.MaxElapsedTime = 0 // bounded by MaxRetries, not wall-clock
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(maxRetries))
}
