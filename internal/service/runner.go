package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// DefaultAgentTimeout bounds one agent attempt unless overridden.
const DefaultAgentTimeout = 300 * time.Second

// Runner executes one agent invocation with validation, timing, a
// per-attempt deadline, and linear-backoff retries. Agent panics and
// timeouts never escape: every outcome is an AgentOutput.
type Runner struct {
	registry core.Registry
	policy   *RetryPolicy
	timeout  time.Duration
	log      *logging.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAgentTimeout sets the default per-attempt deadline.
func WithAgentTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p *RetryPolicy) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(log *logging.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner creates a Runner resolving agents through the registry.
func NewRunner(registry core.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		policy:   DefaultRetryPolicy(),
		timeout:  DefaultAgentTimeout,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the agent under the default per-attempt timeout.
func (r *Runner) Run(ctx context.Context, agentID string, input core.AgentInput) *core.AgentOutput {
	return r.RunWithTimeout(ctx, agentID, input, 0)
}

// RunWithTimeout executes the agent with an explicit per-attempt timeout
// (0 means the Runner default). The returned output is the final attempt's
// outcome, unchanged.
func (r *Runner) RunWithTimeout(ctx context.Context, agentID string, input core.AgentInput, timeout time.Duration) *core.AgentOutput {
	agent, err := r.registry.Get(agentID)
	if err != nil {
		return core.Failure(fmt.Sprintf("Agent not found: %s", agentID))
	}

	if err := input.Validate(); err != nil {
		return core.Failure("Invalid input data")
	}

	if timeout <= 0 {
		timeout = r.timeout
	}
	log := r.log.WithProject(input.ProjectID).WithAgent(agentID)

	var out *core.AgentOutput
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		out = r.attempt(ctx, agent, agentID, input, timeout)

		if out.Status == core.AgentStatusFailure {
			if attempt < r.policy.MaxAttempts {
				log.Warn("agent failed, retrying",
					"attempt", attempt,
					"errors", out.Errors,
				)
				select {
				case <-ctx.Done():
					return out
				case <-time.After(r.policy.Delay(attempt)):
				}
				continue
			}
		}
		break
	}
	return out
}

// attempt runs one bounded execution. The agent runs on its own goroutine
// so a deadline fires even against an agent that ignores ctx; an abandoned
// attempt finishes in the background and its result is discarded.
func (r *Runner) attempt(ctx context.Context, agent core.Agent, agentID string, input core.AgentInput, timeout time.Duration) *core.AgentOutput {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan *core.AgentOutput, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				out := core.Failure(fmt.Sprintf("%v", rec))
				out.DurationMS = time.Since(start).Milliseconds()
				done <- out
			}
		}()

		out, err := agent.Execute(attemptCtx, input)
		if err != nil {
			out = core.Failure(err.Error())
		} else if out == nil {
			out = core.Failure("agent returned no output")
		}
		done <- out
	}()

	select {
	case out := <-done:
		out.DurationMS = time.Since(start).Milliseconds()
		if err := out.Validate(); err != nil {
			out.Errors = append(out.Errors, "Output validation failed")
		}
		return out
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			// The caller's context ended; report cancellation, not timeout.
			out := core.Failure(fmt.Sprintf("Agent cancelled: %v", ctx.Err()))
			out.DurationMS = time.Since(start).Milliseconds()
			return out
		}
		r.log.WithAgent(agentID).Error("agent timed out", "timeout", timeout)
		out := core.Failure(fmt.Sprintf("Agent timed out after %ds", int(timeout.Seconds())))
		out.DurationMS = time.Since(start).Milliseconds()
		return out
	}
}
