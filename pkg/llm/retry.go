package llm

import (
	"context"
	"errors"
	"time"
)

// retryingProvider wraps a Provider with bounded retry on retryable failures.
type retryingProvider struct {
	inner      Provider
	maxRetries int
	backoff    time.Duration
}

// WithRetry wraps a provider so that retryable failures (rate limits, server
// errors, transient network faults) are retried up to maxRetries times with
// linear backoff. Non-retryable failures return immediately.
func WithRetry(p Provider, maxRetries int, backoff time.Duration) Provider {
	return &retryingProvider{
		inner:      p,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (r *retryingProvider) Name() string {
	return r.inner.Name()
}

func (r *retryingProvider) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", wrapProviderError(r.inner.Name(), ctx.Err())
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}

		content, err := r.inner.Generate(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var perr *ProviderError
		if !errors.As(err, &perr) || !perr.Retryable {
			return "", err
		}
	}

	return "", lastErr
}
