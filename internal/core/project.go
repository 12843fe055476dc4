package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProjectStatus represents the current state of a project's workflow run.
type ProjectStatus string

const (
	StatusPending          ProjectStatus = "pending"
	StatusRunning          ProjectStatus = "running"
	StatusAwaitingApproval ProjectStatus = "awaiting_approval"
	StatusCompleted        ProjectStatus = "completed"
	StatusFailed           ProjectStatus = "failed"
	StatusCancelled        ProjectStatus = "cancelled"
)

// ValidProjectStatus reports whether s is a recognized project status.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case StatusPending, StatusRunning, StatusAwaitingApproval,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ExecutionContext is the persisted, mutable state of one workflow run.
// It is created by the engine, mutated only by the engine and the approval
// manager, and becomes terminal on completed, failed, or cancelled.
type ExecutionContext struct {
	ProjectID        string                  `json:"project_id"`
	Mode             WorkflowMode            `json:"mode"`
	Workflow         string                  `json:"workflow"`
	InputData        map[string]interface{}  `json:"input_data"`
	Status           ProjectStatus           `json:"status"`
	CurrentPhase     string                  `json:"current_phase,omitempty"`
	CompletedPhases  []string                `json:"completed_phases"`
	PhaseResults     map[string]*PhaseResult `json:"phase_results"`
	ActivatedExperts []ExpertMatch           `json:"activated_experts,omitempty"`
	StartedAt        time.Time               `json:"started_at"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// NewExecutionContext creates a context in the running state.
func NewExecutionContext(projectID string, mode WorkflowMode, workflow string, input map[string]interface{}) *ExecutionContext {
	if input == nil {
		input = make(map[string]interface{})
	}
	return &ExecutionContext{
		ProjectID:       projectID,
		Mode:            mode,
		Workflow:        workflow,
		InputData:       input,
		Status:          StatusRunning,
		CompletedPhases: make([]string, 0),
		PhaseResults:    make(map[string]*PhaseResult),
		StartedAt:       time.Now(),
	}
}

// Validate checks context invariants.
func (c *ExecutionContext) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return ErrValidation(CodeEmptyProjectID, "project id cannot be empty")
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if !ValidProjectStatus(c.Status) {
		return ErrValidation(CodeInvalidStatus, fmt.Sprintf("unknown project status: %q", c.Status))
	}
	// current_phase may appear in completed_phases: a run suspended at an
	// approval gate keeps pointing at the phase that produced the artifact.
	for _, name := range c.CompletedPhases {
		if _, ok := c.PhaseResults[name]; !ok {
			return ErrState(CodeInvalidState,
				fmt.Sprintf("completed phase %s has no recorded result", name))
		}
	}
	return nil
}

// PhaseCompleted reports whether the named phase has already run.
func (c *ExecutionContext) PhaseCompleted(name string) bool {
	for _, p := range c.CompletedPhases {
		if p == name {
			return true
		}
	}
	return false
}

// RecordPhase appends a completed phase and its result.
func (c *ExecutionContext) RecordPhase(name string, result *PhaseResult) {
	if c.PhaseResults == nil {
		c.PhaseResults = make(map[string]*PhaseResult)
	}
	c.PhaseResults[name] = result
	c.CompletedPhases = append(c.CompletedPhases, name)
}

// MarkAwaitingApproval suspends the run at an approval gate.
func (c *ExecutionContext) MarkAwaitingApproval() error {
	if c.Status != StatusRunning {
		return ErrState(CodeInvalidState,
			fmt.Sprintf("cannot await approval from %s state", c.Status))
	}
	c.Status = StatusAwaitingApproval
	return nil
}

// MarkRunning returns a suspended or pending run to the running state.
func (c *ExecutionContext) MarkRunning() error {
	if c.IsTerminal() {
		return ErrState(CodeInvalidState,
			fmt.Sprintf("cannot run a %s project", c.Status))
	}
	c.Status = StatusRunning
	return nil
}

// MarkCompleted transitions the run to its successful terminal state.
func (c *ExecutionContext) MarkCompleted() error {
	if c.Status != StatusRunning {
		return ErrState(CodeInvalidState,
			fmt.Sprintf("cannot complete workflow in %s state", c.Status))
	}
	c.Status = StatusCompleted
	now := time.Now()
	c.CompletedAt = &now
	return nil
}

// MarkFailed records the error and transitions to failed.
func (c *ExecutionContext) MarkFailed(err error) {
	c.Status = StatusFailed
	if err != nil {
		c.Error = err.Error()
	}
	now := time.Now()
	c.CompletedAt = &now
}

// MarkCancelled transitions the run to cancelled.
func (c *ExecutionContext) MarkCancelled() {
	c.Status = StatusCancelled
	now := time.Now()
	c.CompletedAt = &now
}

// IsTerminal returns true when no further phase execution may occur.
func (c *ExecutionContext) IsTerminal() bool {
	return c.Status == StatusCompleted ||
		c.Status == StatusFailed ||
		c.Status == StatusCancelled
}

// Clone returns a deep copy. Stores hand copies out so callers cannot
// mutate persisted state through shared maps.
func (c *ExecutionContext) Clone() *ExecutionContext {
	data, err := json.Marshal(c)
	if err != nil {
		// ExecutionContext is always JSON-representable; a marshal failure
		// means a programming error upstream.
		panic(fmt.Sprintf("cloning execution context: %v", err))
	}
	var out ExecutionContext
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("cloning execution context: %v", err))
	}
	return &out
}
