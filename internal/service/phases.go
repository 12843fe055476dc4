package service

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// SkipReasonNoAgents is recorded when activation filters out every agent.
const SkipReasonNoAgents = "no_activated_agents"

// PhaseExecutor runs a single phase against an execution context: it
// activates the phase's agents, dispatches them according to the phase's
// execution model, and aggregates the per-agent outcomes. Agent-level
// failures degrade the phase result; only structural problems (an unknown
// execution model, a dependency cycle) surface as errors.
type PhaseExecutor struct {
	runner   *Runner
	parallel *ParallelExecutor
	log      *logging.Logger
}

// NewPhaseExecutor creates a phase executor.
func NewPhaseExecutor(runner *Runner, parallel *ParallelExecutor, log *logging.Logger) *PhaseExecutor {
	if log == nil {
		log = logging.NewNop()
	}
	return &PhaseExecutor{runner: runner, parallel: parallel, log: log}
}

// Execute runs one phase. A phase with no activated agents is skipped
// without consulting the registry.
func (e *PhaseExecutor) Execute(ctx context.Context, phase *core.Phase, ec *core.ExecutionContext) (*core.PhaseResult, error) {
	activated := e.activate(phase, ec)
	if len(activated) == 0 {
		e.log.WithProject(ec.ProjectID).WithPhase(phase.Name).Info("phase skipped",
			"reason", SkipReasonNoAgents,
		)
		return core.SkippedResult(SkipReasonNoAgents), nil
	}

	input := buildAgentInput(ec, phase)

	switch phase.ExecutionModel {
	case core.ModelSequential:
		return e.runSequential(ctx, activated, input), nil
	case core.ModelParallel:
		return e.parallel.Execute(ctx, activated, input), nil
	case core.ModelDependencyGraph:
		return e.runDependencyGraph(ctx, phase, activated, input)
	default:
		return nil, core.ErrValidation(core.CodeUnknownExecModel,
			fmt.Sprintf("phase %s: unknown execution model %q", phase.Name, phase.ExecutionModel))
	}
}

// activate applies the activation matrix when the phase requests it.
func (e *PhaseExecutor) activate(phase *core.Phase, ec *core.ExecutionContext) []string {
	if phase.ActivationRules == nil || !phase.ActivationRules.UseActivationMatrix {
		return phase.Agents
	}
	projectType := ResolveProjectType(ec.InputData)
	activated := FilterByMatrix(phase.Agents, projectType, phase.Name)
	e.log.WithProject(ec.ProjectID).WithPhase(phase.Name).Debug("activation matrix applied",
		"project_type", projectType,
		"eligible", len(phase.Agents),
		"activated", len(activated),
	)
	return activated
}

// runSequential executes agents one by one. Each agent observes every prior
// agent's output through its dependencies; a failing agent does not stop
// its successors but degrades the phase to partial_failure.
func (e *PhaseExecutor) runSequential(ctx context.Context, agents []string, input core.AgentInput) *core.PhaseResult {
	results := make(map[string]*core.AgentOutput, len(agents))
	var errs []string

	deps := input.Dependencies
	for _, id := range agents {
		call := input
		call.Dependencies = cloneDependencies(deps)

		out := e.runner.Run(ctx, id, call)
		results[id] = out
		if !out.Succeeded() {
			errs = append(errs, id+": "+firstError(out))
		}
		deps[id] = out
	}

	status := core.PhaseCompleted
	if len(errs) > 0 {
		status = core.PhasePartialFailure
	}
	return &core.PhaseResult{
		Status:       status,
		AgentResults: results,
		Errors:       errs,
	}
}

// runDependencyGraph resolves the phase's dependency table into batches and
// executes each batch in parallel; later batches observe earlier batches'
// outputs through their dependencies.
func (e *PhaseExecutor) runDependencyGraph(ctx context.Context, phase *core.Phase, agents []string, input core.AgentInput) (*core.PhaseResult, error) {
	batches, err := ResolveBatches(agents, phase.Dependencies)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*core.AgentOutput, len(agents))
	var errs []string

	deps := input.Dependencies
	for _, batch := range batches {
		call := input
		call.Dependencies = cloneDependencies(deps)

		res := e.parallel.Execute(ctx, batch, call)
		for id, out := range res.AgentResults {
			results[id] = out
			deps[id] = out
		}
		errs = append(errs, res.Errors...)
	}

	status := core.PhaseCompleted
	if len(errs) > 0 {
		status = core.PhasePartialFailure
	}
	return &core.PhaseResult{
		Status:       status,
		AgentResults: results,
		Errors:       errs,
	}, nil
}

// buildAgentInput assembles the invocation payload: the project input data
// plus engine fields in the context map, and every completed phase's agent
// outputs as dependencies.
func buildAgentInput(ec *core.ExecutionContext, phase *core.Phase) core.AgentInput {
	ctxMap := make(map[string]interface{}, len(ec.InputData)+3)
	for k, v := range ec.InputData {
		ctxMap[k] = v
	}
	ctxMap["phase"] = phase.Name
	ctxMap["mode"] = string(ec.Mode)
	ctxMap["project_type"] = ResolveProjectType(ec.InputData)
	if len(ec.ActivatedExperts) > 0 {
		ctxMap["activated_experts"] = ec.ActivatedExperts
	}

	deps := make(map[string]*core.AgentOutput)
	for _, name := range ec.CompletedPhases {
		if res, ok := ec.PhaseResults[name]; ok && res != nil {
			for id, out := range res.AgentResults {
				deps[id] = out
			}
		}
	}

	return core.AgentInput{
		ProjectID:    ec.ProjectID,
		Context:      ctxMap,
		Dependencies: deps,
	}
}

func cloneDependencies(deps map[string]*core.AgentOutput) map[string]*core.AgentOutput {
	clone := make(map[string]*core.AgentOutput, len(deps))
	for k, v := range deps {
		clone[k] = v
	}
	return clone
}
