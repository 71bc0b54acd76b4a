package runner

import (
	"context"
	"time"
)

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(method, target string, status int, err error)
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(status int, err error) bool           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

// retrySender wraps a Sender with retry logic.
type retrySender struct {
	inner  Sender
	policy RetryPolicy
}

// WithRetry wraps a Sender with retry capability. The outcome recorded for
// the tick is the last attempt's.
func WithRetry(s Sender, policy RetryPolicy) Sender {
	if policy.MaxAttempts <= 1 {
		return s
	}
	return &retrySender{
		inner:  s,
		policy: policy,
	}
}

func (r *retrySender) Send(ctx context.Context, method, target string) (int, error) {
	var status int
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return status, ctx.Err()
		}

		status, lastErr = r.inner.Send(ctx, method, target)
		if lastErr == nil {
			return status, nil
		}

		// Don't delay after the last attempt.
		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(status, lastErr) {
				return status, lastErr
			}
			var delay time.Duration
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, lastErr)
			} else {
				delay = r.policy.Delay
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return status, ctx.Err()
				}
			}
		}
	}
	return status, lastErr
}

// loggingSender wraps a Sender with failure logging.
type loggingSender struct {
	inner  Sender
	logger FailureLogger
}

// WithLogging wraps a Sender to log failures.
func WithLogging(s Sender, logger FailureLogger) Sender {
	if logger == nil {
		return s
	}
	return &loggingSender{
		inner:  s,
		logger: logger,
	}
}

func (l *loggingSender) Send(ctx context.Context, method, target string) (int, error) {
	status, err := l.inner.Send(ctx, method, target)
	if err != nil {
		l.logger.LogFailure(method, target, status, err)
	}
	return status, err
}
