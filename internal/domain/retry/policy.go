// Package retry defines retry policies and backoff strategies.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines a retry strategy.
type Policy struct {
	MaxAttempts     int           `json:"max_attempts"` // total attempts, including the first
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	BackoffStrategy BackoffType   `json:"backoff_strategy"`
	JitterFactor    float64       `json:"jitter_factor"` // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // Same delay each time
	BackoffLinear      BackoffType = "linear"      // Delay increases linearly
	BackoffExponential BackoffType = "exponential" // Delay doubles each time
)

// UpstreamPolicy is the policy for upstream write calls: three attempts in
// total, waiting base x attempt between them, no jitter.
func UpstreamPolicy(base time.Duration, attempts int) Policy {
	if attempts <= 0 {
		attempts = 3
	}
	return Policy{
		MaxAttempts:     attempts,
		InitialDelay:    base,
		BackoffStrategy: BackoffLinear,
	}
}

// NoRetryPolicy returns a policy that never retries.
func NoRetryPolicy() Policy {
	return Policy{MaxAttempts: 1}
}

// CalculateDelay calculates the delay to wait after the given failed attempt (1-based).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// ShouldRetry reports whether another attempt may follow the given failed
// attempt (1-based).
func (p *Policy) ShouldRetry(attempt int, err error, retryable func(error) bool) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if retryable == nil {
		return true
	}
	return retryable(err)
}

// Event describes a scheduled retry.
type Event struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

// Executor provides retry execution functionality.
type Executor struct {
	policy    Policy
	retryable func(error) bool
	onRetry   func(Event)
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier limits retries to errors for which fn returns true.
func WithClassifier(fn func(error) bool) Option {
	return func(e *Executor) { e.retryable = fn }
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(Event)) Option {
	return func(e *Executor) { e.onRetry = fn }
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do runs fn under the executor's policy and returns the last result and error.
// attempt is 1-based.
// Non-retryable errors are returned immediately.
func Do[T any](ctx context.Context, e *Executor, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	var result T

	maxAttempts := e.policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		r, err := fn(ctx, attempt)
		if err == nil {
			return r, nil
		}
		result = r
		lastErr = err

		if !e.policy.ShouldRetry(attempt, err, e.retryable) {
			break
		}

		delay := e.policy.CalculateDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(Event{Attempt: attempt, Delay: delay, Err: err})
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, lastErr
}
