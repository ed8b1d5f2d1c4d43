package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/CriticalRange/arula-cli-sub001/internal/backoff"
)

// BaseProvider holds shared retry configuration for LLM providers.
type BaseProvider struct {
	name       string
	maxRetries int
	policy     backoff.BackoffPolicy
	logger     *slog.Logger
}

// NewBaseProvider creates a base provider with sane defaults. retryDelay
// seeds the backoff policy's initial delay; the policy then grows it
// exponentially (factor 2, 10% jitter) up to a 30s ceiling rather than
// the flat linear schedule this used to hand-roll.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	policy := backoff.DefaultPolicy()
	policy.InitialMs = float64(retryDelay.Milliseconds())
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		policy:     policy,
		logger:     slog.Default(),
	}
}

// Retry executes op with the package's exponential-backoff-with-jitter
// schedule if isRetryable returns true. onRetry, if non-nil, is called
// with the 1-indexed attempt number and the error that triggered the
// retry — the orchestrator uses it to bump a Prometheus counter; a nil
// hook is a no-op. Every retry is also logged at Warn via the provider's
// slog logger, per spec.md section 4.C's "human-readable attempt count
// surfaced through the log sink."
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, onRetry func(attempt int, err error), op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= b.maxRetries {
				break
			}
			b.logger.Warn("provider request failed, retrying", "provider", b.name, "attempt", attempt, "max_attempts", b.maxRetries, "error", err)
			if onRetry != nil {
				onRetry(attempt, err)
			}
			if err := backoff.SleepWithContext(ctx, backoff.ComputeBackoff(b.policy, attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}
