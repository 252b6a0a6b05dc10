package resilience

import "time"

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent executions.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithQueue lets up to n calls wait at most timeout for a bulkhead slot.
func WithQueue(n int, timeout time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.MaxQueue = n
		c.QueueTimeout = timeout
	}
}

// WithCircuitBreaker enables the breaker with a failure threshold and open duration.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerEnabled = true
		c.CircuitBreakerThreshold = threshold
		c.CircuitBreakerTimeout = timeout
	}
}

// WithoutCircuitBreaker disables the breaker.
func WithoutCircuitBreaker() Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerEnabled = false
	}
}

// WithRetry enables retry with the given attempts and initial delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.RetryEnabled = true
		c.RetryMaxAttempts = attempts
		c.RetryInitialDelay = delay
	}
}

// WithoutRetry disables retry.
func WithoutRetry() Option {
	return func(c *ExecutorConfig) {
		c.RetryEnabled = false
	}
}

// WithNonRetryable marks errors that must not be retried.
func WithNonRetryable(errs ...error) Option {
	return func(c *ExecutorConfig) {
		c.NonRetryableErrors = append(c.NonRetryableErrors, errs...)
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.Timeout = d
	}
}
