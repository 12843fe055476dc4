package core

import "fmt"

// ExecutionModel determines how a phase dispatches its agents.
type ExecutionModel string

const (
	ModelSequential      ExecutionModel = "sequential"
	ModelParallel        ExecutionModel = "parallel"
	ModelDependencyGraph ExecutionModel = "dependency_graph"
)

// ValidExecutionModel reports whether m is a recognized execution model.
func ValidExecutionModel(m ExecutionModel) bool {
	switch m {
	case ModelSequential, ModelParallel, ModelDependencyGraph:
		return true
	}
	return false
}

// WorkflowMode selects a built-in workflow definition.
type WorkflowMode string

const (
	ModeDiscovery WorkflowMode = "discovery"
	ModeDirect    WorkflowMode = "direct"
)

// ParseMode converts a string to a WorkflowMode.
func ParseMode(s string) (WorkflowMode, error) {
	switch WorkflowMode(s) {
	case ModeDiscovery:
		return ModeDiscovery, nil
	case ModeDirect:
		return ModeDirect, nil
	}
	return "", ErrValidation(CodeUnknownMode, fmt.Sprintf("unknown workflow mode: %q", s))
}

// ActivationRules control which of a phase's eligible agents actually run.
type ActivationRules struct {
	// UseActivationMatrix filters agents through the project-type matrix.
	UseActivationMatrix bool `json:"use_activation_matrix"`
}

// Phase is one ordered unit of a workflow definition.
type Phase struct {
	Name             string           `json:"name"`
	DisplayName      string           `json:"display_name"`
	Description      string           `json:"description"`
	RequiresApproval bool             `json:"requires_approval"`
	ExecutionModel   ExecutionModel   `json:"execution_model"`
	Agents           []string         `json:"agents"`
	ActivationRules  *ActivationRules `json:"activation_rules,omitempty"`
	// Dependencies maps an agent id to its predecessors. Only consulted for
	// dependency_graph phases; every endpoint must appear in Agents.
	Dependencies map[string][]string `json:"dependencies,omitempty"`
}

// Validate checks the phase definition is structurally sound.
func (p *Phase) Validate() error {
	if p.Name == "" {
		return ErrValidation(CodeBadDefinition, "phase requires a name")
	}
	if !ValidExecutionModel(p.ExecutionModel) {
		return ErrValidation(CodeBadDefinition,
			fmt.Sprintf("phase %s: unknown execution model %q", p.Name, p.ExecutionModel))
	}
	if len(p.Dependencies) > 0 {
		eligible := make(map[string]bool, len(p.Agents))
		for _, id := range p.Agents {
			eligible[id] = true
		}
		for agent, preds := range p.Dependencies {
			if !eligible[agent] {
				return ErrValidation(CodeBadDefinition,
					fmt.Sprintf("phase %s: dependency graph names %s outside the eligible agent set", p.Name, agent))
			}
			for _, pred := range preds {
				if !eligible[pred] {
					return ErrValidation(CodeBadDefinition,
						fmt.Sprintf("phase %s: %s depends on %s which is not eligible", p.Name, agent, pred))
				}
			}
		}
	}
	return nil
}

// WorkflowDefinition is a static ordered list of phases.
type WorkflowDefinition struct {
	Name   string       `json:"name"`
	Mode   WorkflowMode `json:"mode"`
	Phases []Phase      `json:"phases"`
}

// GetPhase returns the phase with the given name, or nil.
func (w *WorkflowDefinition) GetPhase(name string) *Phase {
	for i := range w.Phases {
		if w.Phases[i].Name == name {
			return &w.Phases[i]
		}
	}
	return nil
}

// PhaseNames returns the ordered phase names.
func (w *WorkflowDefinition) PhaseNames() []string {
	names := make([]string, len(w.Phases))
	for i := range w.Phases {
		names[i] = w.Phases[i].Name
	}
	return names
}

// Validate checks every phase of the definition.
func (w *WorkflowDefinition) Validate() error {
	if len(w.Phases) == 0 {
		return ErrValidation(CodeBadDefinition, "workflow definition has no phases")
	}
	seen := make(map[string]bool, len(w.Phases))
	for i := range w.Phases {
		if err := w.Phases[i].Validate(); err != nil {
			return err
		}
		if seen[w.Phases[i].Name] {
			return ErrValidation(CodeBadDefinition,
				fmt.Sprintf("duplicate phase name: %s", w.Phases[i].Name))
		}
		seen[w.Phases[i].Name] = true
	}
	return nil
}

// PhaseStatus is the aggregate outcome of a phase execution.
type PhaseStatus string

const (
	PhaseCompleted      PhaseStatus = "completed"
	PhasePartialFailure PhaseStatus = "partial_failure"
	PhaseSkipped        PhaseStatus = "skipped"
)

// PhaseResult aggregates the agent outputs of one phase execution.
type PhaseResult struct {
	Status       PhaseStatus             `json:"status"`
	Reason       string                  `json:"reason,omitempty"`
	AgentResults map[string]*AgentOutput `json:"agent_results,omitempty"`
	Errors       []string                `json:"errors,omitempty"`
}

// SkippedResult builds the result used when activation leaves no agents.
func SkippedResult(reason string) *PhaseResult {
	return &PhaseResult{Status: PhaseSkipped, Reason: reason}
}
