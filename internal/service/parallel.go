package service

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// ParallelExecutor runs a set of agents concurrently and gathers every
// outcome. A failing agent never cancels its peers: each goroutine writes
// into its own result slot and the executor waits for all of them.
type ParallelExecutor struct {
	runner   *Runner
	registry core.Registry
	timeout  time.Duration
	log      *logging.Logger
}

// NewParallelExecutor creates an executor invoking agents through runner.
// The timeout applies per agent call (0 means the runner default).
func NewParallelExecutor(runner *Runner, registry core.Registry, timeout time.Duration, log *logging.Logger) *ParallelExecutor {
	if log == nil {
		log = logging.NewNop()
	}
	return &ParallelExecutor{
		runner:   runner,
		registry: registry,
		timeout:  timeout,
		log:      log,
	}
}

// Execute runs every resolvable agent id concurrently with the same input.
// Ids the registry cannot resolve are dropped; activation filtering happens
// upstream in the phase executor. An empty effective set completes with no
// results.
func (p *ParallelExecutor) Execute(ctx context.Context, agentIDs []string, input core.AgentInput) *core.PhaseResult {
	resolved := make([]string, 0, len(agentIDs))
	for _, id := range agentIDs {
		if _, err := p.registry.Get(id); err != nil {
			p.log.WithProject(input.ProjectID).Debug("dropping unresolvable agent", "agent", id)
			continue
		}
		resolved = append(resolved, id)
	}

	if len(resolved) == 0 {
		return &core.PhaseResult{
			Status:       core.PhaseCompleted,
			AgentResults: map[string]*core.AgentOutput{},
		}
	}

	p.log.WithProject(input.ProjectID).Info("starting parallel execution",
		"agents", resolved,
	)

	results := make([]*core.AgentOutput, len(resolved))
	var wg sync.WaitGroup
	for i, id := range resolved {
		wg.Add(1)
		go func(slot int, agentID string) {
			defer wg.Done()
			results[slot] = p.runner.RunWithTimeout(ctx, agentID, input, p.timeout)
		}(i, id)
	}
	wg.Wait()

	agentResults := make(map[string]*core.AgentOutput, len(resolved))
	var errs []string
	for i, id := range resolved {
		out := results[i]
		agentResults[id] = out
		if !out.Succeeded() {
			errs = append(errs, id+": "+firstError(out))
		}
	}

	status := core.PhaseCompleted
	if len(errs) > 0 {
		status = core.PhasePartialFailure
	}
	return &core.PhaseResult{
		Status:       status,
		AgentResults: agentResults,
		Errors:       errs,
	}
}

func firstError(out *core.AgentOutput) string {
	if out == nil {
		return "no output"
	}
	if len(out.Errors) > 0 {
		return out.Errors[0]
	}
	return "agent did not succeed (status " + string(out.Status) + ")"
}
