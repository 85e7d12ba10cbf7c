package push

import (
	"context"
	"time"
)

// RetryConfig controls reconnect behavior of a push source
type RetryConfig struct {
	// MaxAttempts is the maximum number of connection attempts before giving up
	MaxAttempts int

	// InitialBackoff is the delay before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries
	MaxBackoff time.Duration

	// BackoffMultiply is the factor to multiply backoff by after each attempt
	BackoffMultiply float64
}

// DefaultRetryConfig matches the job service's own client: ten attempts,
// starting at one second and capped at five.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     10,
	InitialBackoff:  1 * time.Second,
	MaxBackoff:      5 * time.Second,
	BackoffMultiply: 2.0,
}

// withDefaults fills zero fields from DefaultRetryConfig
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultRetryConfig.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultRetryConfig.MaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffMultiply < 1 {
		c.BackoffMultiply = DefaultRetryConfig.BackoffMultiply
	}
	return c
}

// RetryResult indicates the outcome of a retried operation
type RetryResult struct {
	// Success indicates if the operation eventually succeeded
	Success bool

	// Attempts is how many attempts were made
	Attempts int

	// LastErr is the error from the final failed attempt (if any)
	LastErr error
}

// RetryWithBackoff retries an operation with exponential backoff.
// onRetry, when non-nil, is called before each wait with the attempt
// that just failed and the delay about to be slept.
func RetryWithBackoff(
	ctx context.Context,
	cfg RetryConfig,
	operation func(ctx context.Context) error,
	onRetry func(attempt int, delay time.Duration, err error),
) RetryResult {
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return RetryResult{Success: true, Attempts: attempt}
		}

		lastErr = err
		if ctx.Err() != nil {
			return RetryResult{Success: false, Attempts: attempt, LastErr: ctx.Err()}
		}

		if attempt < cfg.MaxAttempts {
			if onRetry != nil {
				onRetry(attempt, backoff, err)
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return RetryResult{Success: false, Attempts: attempt, LastErr: ctx.Err()}
			case <-timer.C:
			}

			// Exponential backoff
			backoff = time.Duration(float64(backoff) * cfg.BackoffMultiply)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}

	return RetryResult{Success: false, Attempts: cfg.MaxAttempts, LastErr: lastErr}
}
