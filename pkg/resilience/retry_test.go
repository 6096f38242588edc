package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fastRetryConfig(3), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("persistent")
	calls := 0
	err := Retry(context.Background(), "op", fastRetryConfig(3), func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Retry = %v, want wrapped sentinel", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// An open circuit rejects every call until its reset timeout, so backing off
// and retrying against it is pointless: the loop must stop at the first
// ErrCircuitOpen instead of sleeping through the remaining attempts.
func TestRetryStopsOnOpenCircuit(t *testing.T) {
	breaker := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	if err := breaker.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure to trip the breaker")
	}
	if state := breaker.CurrentState(); state != StateOpen {
		t.Fatalf("breaker state = %v, want open", state)
	}

	calls := 0
	err := Retry(context.Background(), "op", fastRetryConfig(5), func() error {
		calls++
		return breaker.Execute(func() error { return nil })
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Retry = %v, want ErrCircuitOpen", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries against an open circuit)", calls)
	}
}

func TestRetryAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "op", fastRetryConfig(5), func() error {
		calls++
		cancel()
		return errors.New("failing")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
