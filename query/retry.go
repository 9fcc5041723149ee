// Package query is the caching and retry layer that sits between domain
// services and the API client.
package query

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy describes how a failed call is retried.
type Policy struct {
	// Retry is the number of retries after the first attempt.
	Retry int

	// RetryDelay returns the wait before retry number attempt (0-indexed).
	// Nil means no wait.
	RetryDelay func(attempt int, err error) time.Duration

	// ShouldRetry decides whether err is worth another attempt.
	// Nil retries every error.
	ShouldRetry func(attempt int, err error) bool
}

// Backoff is an exponential delay schedule.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	// Jitter scales the delay by (1 + random(-jitter, +jitter)). Zero
	// gives a deterministic schedule.
	Jitter float64
}

// Delay returns min(Max, Initial * Multiplier^attempt) with jitter applied.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := b.Multiplier
	if mult <= 0 {
		mult = 2
	}

	delay := float64(b.Initial) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		delay *= 1.0 + (rand.Float64()*2-1)*b.Jitter
	}

	return time.Duration(delay)
}

// Func adapts b to Policy.RetryDelay.
func (b Backoff) Func() func(int, error) time.Duration {
	return func(attempt int, _ error) time.Duration {
		return b.Delay(attempt)
	}
}

// DefaultQueryPolicy retries any error three times, waiting
// min(1s * 2^n, 30s) before retry n.
func DefaultQueryPolicy() Policy {
	return Policy{
		Retry:      3,
		RetryDelay: Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2}.Func(),
	}
}

// DefaultMutationPolicy retries once, waiting min(1s * 2^n, 10s), and
// never retries a 4xx response.
func DefaultMutationPolicy() Policy {
	return Policy{
		Retry:       1,
		RetryDelay:  Backoff{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}.Func(),
		ShouldRetry: NotClientError,
	}
}

// NoRetry runs a call exactly once.
func NoRetry() Policy {
	return Policy{}
}

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// NotClientError rejects retries for statuses in [400,500).
func NotClientError(_ int, err error) bool {
	status := StatusOf(err)
	return status < 400 || status >= 500
}

// sleep waits for d or until ctx is done. Replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn, retrying per policy. It honors ctx between attempts and
// returns the last error once retries are exhausted.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= policy.Retry {
			return zero, err
		}
		if policy.ShouldRetry != nil && !policy.ShouldRetry(attempt, err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}

		var delay time.Duration
		if policy.RetryDelay != nil {
			delay = policy.RetryDelay(attempt, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, err
		}
	}
}
