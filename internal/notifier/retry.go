package notifier

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const backoffFactor = 1.5

// RetryHandler retries a delivery attempt with exponential backoff and jitter.
type RetryHandler struct {
	maxRetries int
	baseDelay  time.Duration
	jitter     func() float64
	logger     zerolog.Logger
}

// NewRetryHandler creates a retry handler making at most maxRetries attempts.
func NewRetryHandler(maxRetries int, baseDelay time.Duration, logger zerolog.Logger) *RetryHandler {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryHandler{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		jitter:     rand.Float64,
		logger:     logger.With().Str("component", "RetryHandler").Logger(),
	}
}

// CalculateDelay returns the wait after the failed attempt (0-based):
// baseDelay * 1.5^attempt, scaled by a random factor in [0.9, 1.1).
func (rh *RetryHandler) CalculateDelay(attempt int) time.Duration {
	factor := math.Pow(backoffFactor, float64(attempt)) * (0.9 + rh.jitter()*0.2)
	return time.Duration(float64(rh.baseDelay) * factor)
}

// Do runs fn until it succeeds or maxRetries attempts have failed, and returns
// the last error. There is no wait after the final attempt. A cancelled
// context stops the retries and its error is returned.
func (rh *RetryHandler) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < rh.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		rh.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_retries", rh.maxRetries).
			Msg("Delivery attempt failed")

		if attempt < rh.maxRetries-1 {
			if err := sleepContext(ctx, rh.CalculateDelay(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
