package agent

import (
	"context"
	"time"

	"fieldreport/config"
)

// WithRetry calls fn up to maxRetries+1 times. The wait before retry k
// (1-indexed) is baseDelay*k. Permanent errors (see IsPermanent) are returned
// as-is without further attempts. When every attempt fails the result is
// ErrAgentUnavailable, not the last error.
func WithRetry[T any](ctx context.Context, fn func(context.Context) (T, error), maxRetries int, baseDelay time.Duration) (T, error) {
	var zero T
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(baseDelay * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := fn(ctx)
		if err == nil {
			if attempt > 0 && config.DebugLog != nil {
				config.DebugLog.Printf("[Agent] Succeeded after %d attempts", attempt+1)
			}
			return v, nil
		}

		if IsPermanent(err) {
			return zero, unwrapPermanent(err)
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Agent] Attempt %d/%d failed: %v", attempt+1, maxRetries+1, err)
		}
	}

	return zero, ErrAgentUnavailable
}
