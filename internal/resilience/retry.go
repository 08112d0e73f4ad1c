// Package resilience wraps external collaborator calls with retry, fallback
// and escalation behavior. Stage-local recoverable conditions never reach
// this layer; only genuine dependency failures do.
package resilience

import (
	"context"
	"time"

	"buyerbot_backend/internal/config"
	"buyerbot_backend/platform/apperr"
	"buyerbot_backend/platform/logger"

	"github.com/sethvargo/go-retry"
)

// Call runs fn with the configured retry policy. Only errors from the closed
// retryable set (transient network, upstream service) are retried; anything
// else propagates on the first attempt. Each attempt is bounded by the
// per-call timeout. Exhausting retries returns the last error.
func Call[T any](ctx context.Context, policy config.Retry, log *logger.Logger, service, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	attempt := 0

	backoff := retry.NewExponential(policy.InitialBackoff)
	if policy.JitterFactor > 0 {
		jitter := time.Duration(float64(policy.InitialBackoff) * policy.JitterFactor)
		backoff = retry.WithJitter(jitter, backoff)
	}
	if policy.MaxBackoff > 0 {
		backoff = retry.WithCappedDuration(policy.MaxBackoff, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(policy.MaxRetries), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		attemptCtx := ctx
		if policy.CallTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, policy.CallTimeout)
			defer cancel()
		}

		value, callErr := fn(attemptCtx)
		if callErr != nil {
			// A timeout counts as a network failure for retry purposes.
			if attemptCtx.Err() == context.DeadlineExceeded {
				callErr = apperr.TransientNetwork("call timed out", callErr)
			}
			if apperr.Retryable(callErr) {
				log.ExternalCallFailed(service, operation, attempt, callErr)
				return retry.RetryableError(callErr)
			}
			return callErr
		}

		result = value
		return nil
	})

	return result, err
}
