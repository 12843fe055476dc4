// Package service implements the orchestration pipeline: agent execution
// with retries, dependency resolution, phase dispatch, domain expert
// detection, approval gates, and the per-project engine loop.
package service

import (
	"time"
)

// RetryPolicy defines retry behavior for agent invocations. Backoff grows
// linearly: the sleep before attempt n+1 is BaseDelay * n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard agent retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// RetryPolicyOption configures a retry policy.
type RetryPolicyOption func(*RetryPolicy)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.MaxAttempts = n
	}
}

// WithBaseDelay sets the linear backoff base.
func WithBaseDelay(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.BaseDelay = d
	}
}

// WithMaxDelay caps the backoff sleep.
func WithMaxDelay(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.MaxDelay = d
	}
}

// NewRetryPolicy creates a retry policy from the defaults plus options.
func NewRetryPolicy(opts ...RetryPolicyOption) *RetryPolicy {
	p := DefaultRetryPolicy()
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay computes the sleep after the given attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
