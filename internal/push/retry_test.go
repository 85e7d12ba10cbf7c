package push

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoff_SucceedsEventually(t *testing.T) {
	calls := 0
	var delays []time.Duration
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: 3 * time.Millisecond, BackoffMultiply: 2}

	res := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 4 {
			return errors.New("refused")
		}
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		delays = append(delays, delay)
	})

	if !res.Success || res.Attempts != 4 {
		t.Errorf("expected success on attempt 4, got %+v", res)
	}
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	boom := errors.New("boom")
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiply: 2}

	res := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error { return boom }, nil)

	if res.Success {
		t.Error("expected failure")
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if !errors.Is(res.LastErr, boom) {
		t.Errorf("expected last error boom, got %v", res.LastErr)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiply: 2}

	done := make(chan RetryResult, 1)
	go func() {
		done <- RetryWithBackoff(ctx, cfg, func(ctx context.Context) error { return errors.New("no") }, nil)
	}()
	cancel()

	select {
	case res := <-done:
		if !errors.Is(res.LastErr, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", res.LastErr)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestRetryConfig_WithDefaults(t *testing.T) {
	c := RetryConfig{}.withDefaults()
	if c != DefaultRetryConfig {
		t.Errorf("expected defaults, got %+v", c)
	}

	c = RetryConfig{InitialBackoff: 10 * time.Second, MaxBackoff: time.Second}.withDefaults()
	if c.MaxBackoff != 10*time.Second {
		t.Errorf("expected max backoff raised to initial, got %v", c.MaxBackoff)
	}
}
