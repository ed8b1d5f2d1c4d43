package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsWithoutRetrying(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)
	calls := 0
	err := base.Retry(context.Background(), ShouldRetry, nil, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetryStopsImmediatelyOnNonRetryableError(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)
	wantErr := errors.New("invalid request: missing model")
	calls := 0
	err := base.Retry(context.Background(), ShouldRetry, nil, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Retry() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (non-retryable error must not retry)", calls)
	}
}

func TestRetryRetriesTransientErrorsUpToMaxAttempts(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)
	attempts := 0
	err := base.Retry(context.Background(), ShouldRetry, nil, func() error {
		attempts++
		return &HTTPStatusError{Status: 503}
	})
	if err == nil {
		t.Fatal("Retry() error = nil, want the last transient error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("op called %d times, want 3 (maxRetries)", attempts)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)
	attempts := 0
	err := base.Retry(context.Background(), ShouldRetry, nil, func() error {
		attempts++
		if attempts < 2 {
			return &HTTPStatusError{Status: 502}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if attempts != 2 {
		t.Errorf("op called %d times, want 2", attempts)
	}
}

func TestRetryInvokesOnRetryHookWithAttemptNumber(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)
	var seenAttempts []int
	_ = base.Retry(context.Background(), ShouldRetry, func(attempt int, err error) {
		seenAttempts = append(seenAttempts, attempt)
	}, func() error {
		return &HTTPStatusError{Status: 503}
	})
	if len(seenAttempts) != 2 {
		t.Fatalf("onRetry called %d times, want 2 (once between each of 3 attempts)", len(seenAttempts))
	}
	if seenAttempts[0] != 1 || seenAttempts[1] != 2 {
		t.Errorf("onRetry attempts = %v, want [1 2]", seenAttempts)
	}
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	base := NewBaseProvider("test", 5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := base.Retry(ctx, ShouldRetry, func(attempt int, err error) {
		if attempt == 1 {
			cancel()
		}
	}, func() error {
		attempts++
		return &HTTPStatusError{Status: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("op called %d times, want 1 (sleep interrupted by cancellation)", attempts)
	}
}

func TestRetryNilOpIsANoop(t *testing.T) {
	base := NewBaseProvider("test", 3, time.Millisecond)
	if err := base.Retry(context.Background(), ShouldRetry, nil, nil); err != nil {
		t.Errorf("Retry() error = %v, want nil for a nil op", err)
	}
}
