// Package resilience provides resilient execution patterns using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/hoopstats/domain/config"
)

// Executor runs calls returning T behind a bulkhead, a timeout, a circuit
// breaker and retry. Each layer is optional.
type Executor[T any] struct {
	bulkhead bulkhead.Bulkhead[T]
	breaker  circuitbreaker.CircuitBreaker[T]
	retry    retry.Retry[T]
	timeout  time.Duration
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent calls. Zero leaves calls unbounded.
	MaxConcurrent int

	// MaxQueue is how many calls may wait for a bulkhead slot. Zero rejects
	// calls past MaxConcurrent at once.
	MaxQueue int

	// QueueTimeout bounds the wait for a bulkhead slot. Zero waits until the
	// call context is done.
	QueueTimeout time.Duration

	// CircuitBreakerEnabled turns the breaker on.
	CircuitBreakerEnabled bool

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryEnabled turns retry on.
	RetryEnabled bool

	// RetryMaxAttempts is the maximum number of attempts.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// NonRetryableErrors fail immediately without another attempt.
	NonRetryableErrors []error

	// Timeout bounds one call including its retries. Zero disables it.
	Timeout time.Duration
}

// DefaultExecutorConfig returns the settings used for model calls.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		CircuitBreakerEnabled:   true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryEnabled:            true,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       500 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 60 * time.Second,
	}
}

// FromConfig maps the resilience section of the application config.
func FromConfig(rc config.ResilienceConfig, timeout time.Duration) ExecutorConfig {
	return ExecutorConfig{
		CircuitBreakerEnabled:   rc.CircuitBreaker.Enabled,
		CircuitBreakerThreshold: rc.CircuitBreaker.Threshold,
		CircuitBreakerTimeout:   rc.CircuitBreaker.Timeout.Duration(),
		RetryEnabled:            rc.Retry.Enabled,
		RetryMaxAttempts:        rc.Retry.MaxAttempts,
		RetryInitialDelay:       rc.Retry.InitialDelay.Duration(),
		RetryBackoffMultiplier:  rc.Retry.Multiplier,
		Timeout:                 timeout,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor[T any](cfg ExecutorConfig) *Executor[T] {
	e := &Executor[T]{timeout: cfg.Timeout}

	if cfg.MaxConcurrent > 0 {
		e.bulkhead = bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxQueue,
			QueueTimeout:  cfg.QueueTimeout,
		})
	}

	if cfg.CircuitBreakerEnabled {
		threshold := cfg.CircuitBreakerThreshold
		if threshold <= 0 {
			threshold = 5
		}
		e.breaker = circuitbreaker.New[T](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.CircuitBreakerTimeout,
			Timeout:     cfg.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
			},
		})
	}

	if cfg.RetryEnabled && cfg.RetryMaxAttempts > 1 {
		multiplier := cfg.RetryBackoffMultiplier
		if multiplier < 1 {
			multiplier = 2.0
		}
		e.retry = retry.New[T](retry.Config{
			MaxAttempts:        cfg.RetryMaxAttempts,
			InitialDelay:       cfg.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         multiplier,
			NonRetryableErrors: cfg.NonRetryableErrors,
		})
	}

	return e
}

// NewExecutorWithOptions creates an executor from the defaults and opts.
func NewExecutorWithOptions[T any](opts ...Option) *Executor[T] {
	cfg := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewExecutor[T](cfg)
}

// Execute runs fn with the configured layers applied.
// Composition order: Bulkhead → Timeout → Circuit Breaker → Retry.
func (e *Executor[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	call := fn
	if e.retry != nil {
		inner := call
		call = func(ctx context.Context) (T, error) {
			return e.retry.Do(ctx, inner)
		}
	}
	if e.breaker != nil {
		inner := call
		call = func(ctx context.Context) (T, error) {
			return e.breaker.Execute(ctx, inner)
		}
	}
	if e.timeout > 0 {
		inner := call
		call = func(ctx context.Context) (T, error) {
			ctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()
			return inner(ctx)
		}
	}
	if e.bulkhead != nil {
		return e.bulkhead.Execute(ctx, call)
	}
	return call(ctx)
}

// CircuitBreakerState returns the breaker state, or "disabled".
func (e *Executor[T]) CircuitBreakerState() string {
	if e.breaker == nil {
		return "disabled"
	}
	return e.breaker.State().String()
}
