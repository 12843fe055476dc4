package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

func TestParallelExecutor_AllAgentsSucceed(t *testing.T) {
	registry := newStubRegistry(
		succeedingAgent("testing_agent"),
		succeedingAgent("cicd_agent"),
		succeedingAgent("documentation_agent"),
	)
	exec := NewParallelExecutor(quickRunner(registry), registry, 0, nil)

	result := exec.Execute(context.Background(),
		[]string{"testing_agent", "cicd_agent", "documentation_agent"},
		testInput("proj-1"))

	if result.Status != core.PhaseCompleted {
		t.Errorf("Status = %s, want %s", result.Status, core.PhaseCompleted)
	}
	if len(result.AgentResults) != 3 {
		t.Fatalf("len(AgentResults) = %d, want 3", len(result.AgentResults))
	}
	for _, id := range []string{"testing_agent", "cicd_agent", "documentation_agent"} {
		out, ok := result.AgentResults[id]
		if !ok {
			t.Fatalf("AgentResults missing %s", id)
		}
		if !out.Succeeded() {
			t.Errorf("agent %s did not succeed: %v", id, out.Errors)
		}
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}
}

func TestParallelExecutor_FailureDoesNotCancelPeers(t *testing.T) {
	registry := newStubRegistry(
		failingAgent("cicd_agent", "no pipeline template"),
		succeedingAgent("testing_agent"),
	)
	exec := NewParallelExecutor(quickRunner(registry), registry, 0, nil)

	result := exec.Execute(context.Background(),
		[]string{"cicd_agent", "testing_agent"}, testInput("proj-1"))

	if result.Status != core.PhasePartialFailure {
		t.Errorf("Status = %s, want %s", result.Status, core.PhasePartialFailure)
	}
	if out := result.AgentResults["testing_agent"]; out == nil || !out.Succeeded() {
		t.Errorf("sibling agent should have completed, got %+v", out)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one entry", result.Errors)
	}
	if want := "cicd_agent: no pipeline template"; result.Errors[0] != want {
		t.Errorf("Errors[0] = %q, want %q", result.Errors[0], want)
	}
}

func TestParallelExecutor_TimeoutConfinedToSlowAgent(t *testing.T) {
	registry := newStubRegistry(
		sleepingAgent("slow_agent", 10*time.Second),
		succeedingAgent("fast_agent"),
	)
	runner := quickRunner(registry, WithPolicy(NewRetryPolicy(
		WithMaxAttempts(1),
		WithBaseDelay(time.Millisecond),
	)))
	exec := NewParallelExecutor(runner, registry, 50*time.Millisecond, nil)

	start := time.Now()
	result := exec.Execute(context.Background(),
		[]string{"slow_agent", "fast_agent"}, testInput("proj-1"))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("execution took %v, deadline did not fire", elapsed)
	}

	if result.Status != core.PhasePartialFailure {
		t.Errorf("Status = %s, want %s", result.Status, core.PhasePartialFailure)
	}
	slow := result.AgentResults["slow_agent"]
	if slow == nil || len(slow.Errors) == 0 || !strings.Contains(slow.Errors[0], "timed out") {
		t.Errorf("slow agent output = %+v, want timeout failure", slow)
	}
	if fast := result.AgentResults["fast_agent"]; fast == nil || !fast.Succeeded() {
		t.Errorf("fast agent should be unaffected by the sibling timeout, got %+v", fast)
	}
}

func TestParallelExecutor_DropsUnresolvableAgents(t *testing.T) {
	registry := newStubRegistry(succeedingAgent("testing_agent"))
	exec := NewParallelExecutor(quickRunner(registry), registry, 0, nil)

	result := exec.Execute(context.Background(),
		[]string{"testing_agent", "retired_agent"}, testInput("proj-1"))

	if result.Status != core.PhaseCompleted {
		t.Errorf("Status = %s, want %s", result.Status, core.PhaseCompleted)
	}
	if len(result.AgentResults) != 1 {
		t.Errorf("len(AgentResults) = %d, want 1", len(result.AgentResults))
	}
	if _, ok := result.AgentResults["retired_agent"]; ok {
		t.Error("unresolvable agent must not appear in the results")
	}
}

func TestParallelExecutor_EmptySetCompletes(t *testing.T) {
	registry := newStubRegistry()
	exec := NewParallelExecutor(quickRunner(registry), registry, 0, nil)

	result := exec.Execute(context.Background(), nil, testInput("proj-1"))

	if result.Status != core.PhaseCompleted {
		t.Errorf("Status = %s, want %s", result.Status, core.PhaseCompleted)
	}
	if len(result.AgentResults) != 0 {
		t.Errorf("AgentResults = %v, want empty", result.AgentResults)
	}
}

// Agents must actually run at the same time: each one blocks until every
// other has started, so a sequential executor would stall here.
func TestParallelExecutor_RunsAgentsConcurrently(t *testing.T) {
	const n = 3
	ids := []string{"backend_developer", "frontend_developer", "aiml_developer"}
	arrived := make(chan struct{}, n)
	release := make(chan struct{})

	agents := make([]core.Agent, 0, n)
	for _, id := range ids {
		id := id
		agents = append(agents, &stubAgent{
			id: id,
			execute: func(context.Context, core.AgentInput) (*core.AgentOutput, error) {
				arrived <- struct{}{}
				<-release
				return core.Success(map[string]interface{}{"agent": id}), nil
			},
		})
	}
	registry := newStubRegistry(agents...)
	exec := NewParallelExecutor(quickRunner(registry), registry, 30*time.Second, nil)

	go func() {
		deadline := time.After(5 * time.Second)
		for i := 0; i < n; i++ {
			select {
			case <-arrived:
			case <-deadline:
				t.Error("agents never overlapped; execution looks sequential")
				close(release)
				return
			}
		}
		close(release)
	}()

	result := exec.Execute(context.Background(), ids, testInput("proj-1"))
	if result.Status != core.PhaseCompleted {
		t.Errorf("Status = %s, want %s", result.Status, core.PhaseCompleted)
	}
	if len(result.AgentResults) != n {
		t.Errorf("len(AgentResults) = %d, want %d", len(result.AgentResults), n)
	}
}
