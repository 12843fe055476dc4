package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// ApprovalStatus represents the state of an approval gate.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalGate is a suspension point between two phases awaiting external
// resolution. Gates share the project's lifetime and are never deleted;
// resolution archives them in place.
type ApprovalGate struct {
	GateID     string         `json:"gate_id"`
	ProjectID  string         `json:"project_id"`
	Phase      string         `json:"phase"`
	Artifact   *PhaseResult   `json:"artifact,omitempty"`
	Status     ApprovalStatus `json:"status"`
	Feedback   string         `json:"feedback,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

// NewApprovalGate creates a pending gate for a phase boundary.
func NewApprovalGate(projectID, phase string, artifact *PhaseResult) *ApprovalGate {
	now := time.Now()
	return &ApprovalGate{
		GateID:    fmt.Sprintf("%s_%s_%d", projectID, phase, now.Unix()),
		ProjectID: projectID,
		Phase:     phase,
		Artifact:  artifact,
		Status:    ApprovalPending,
		CreatedAt: now,
	}
}

// Resolve sets the gate's terminal status with optional feedback.
func (g *ApprovalGate) Resolve(status ApprovalStatus, feedback string) error {
	if g.Status != ApprovalPending {
		return ErrState(CodeInvalidState,
			fmt.Sprintf("gate %s already resolved to %s", g.GateID, g.Status))
	}
	if status != ApprovalApproved && status != ApprovalRejected {
		return ErrValidation(CodeInvalidStatus,
			fmt.Sprintf("gate resolution must be approved or rejected, got %q", status))
	}
	g.Status = status
	g.Feedback = feedback
	now := time.Now()
	g.ResolvedAt = &now
	return nil
}

// Pending reports whether the gate still awaits resolution.
func (g *ApprovalGate) Pending() bool {
	return g.Status == ApprovalPending
}

// Clone returns a deep copy of the gate.
func (g *ApprovalGate) Clone() *ApprovalGate {
	data, err := json.Marshal(g)
	if err != nil {
		panic(fmt.Sprintf("cloning approval gate: %v", err))
	}
	var out ApprovalGate
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("cloning approval gate: %v", err))
	}
	return &out
}
