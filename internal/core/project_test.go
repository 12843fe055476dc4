package core

import (
	"errors"
	"testing"
)

func TestNewExecutionContext(t *testing.T) {
	ec := NewExecutionContext("shop-api", ModeDiscovery, "discovery", nil)

	if ec.Status != StatusRunning {
		t.Errorf("Status = %s, want %s", ec.Status, StatusRunning)
	}
	if ec.InputData == nil {
		t.Error("InputData should be initialized when nil is passed")
	}
	if ec.CompletedPhases == nil || ec.PhaseResults == nil {
		t.Error("phase bookkeeping should be initialized")
	}
	if ec.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
	if err := ec.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestExecutionContextValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ExecutionContext)
		wantCode string
	}{
		{
			name:     "empty project id",
			mutate:   func(ec *ExecutionContext) { ec.ProjectID = "  " },
			wantCode: CodeEmptyProjectID,
		},
		{
			name:     "unknown mode",
			mutate:   func(ec *ExecutionContext) { ec.Mode = "hybrid" },
			wantCode: CodeUnknownMode,
		},
		{
			name:     "unknown status",
			mutate:   func(ec *ExecutionContext) { ec.Status = "paused" },
			wantCode: CodeInvalidStatus,
		},
		{
			name: "completed phase without result",
			mutate: func(ec *ExecutionContext) {
				ec.CompletedPhases = append(ec.CompletedPhases, "input")
			},
			wantCode: CodeInvalidState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewExecutionContext("shop-api", ModeDirect, "direct", nil)
			tt.mutate(ec)

			err := ec.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			var domainErr *DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("error = %T, want *DomainError", err)
			}
			if domainErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", domainErr.Code, tt.wantCode)
			}
		})
	}
}

func TestRecordPhaseAndPhaseCompleted(t *testing.T) {
	ec := NewExecutionContext("shop-api", ModeDirect, "direct", nil)

	if ec.PhaseCompleted("input") {
		t.Error("input should not be completed yet")
	}

	ec.RecordPhase("input", &PhaseResult{Status: PhaseCompleted})
	ec.RecordPhase("scaffolding", &PhaseResult{Status: PhasePartialFailure})

	if !ec.PhaseCompleted("input") || !ec.PhaseCompleted("scaffolding") {
		t.Error("recorded phases should report completed")
	}
	if len(ec.CompletedPhases) != 2 || ec.CompletedPhases[0] != "input" {
		t.Errorf("CompletedPhases = %v, want ordered [input scaffolding]", ec.CompletedPhases)
	}
	if err := ec.Validate(); err != nil {
		t.Errorf("Validate() after RecordPhase = %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Run("awaiting approval only from running", func(t *testing.T) {
		ec := NewExecutionContext("p", ModeDiscovery, "discovery", nil)
		if err := ec.MarkAwaitingApproval(); err != nil {
			t.Fatalf("MarkAwaitingApproval() = %v", err)
		}
		if ec.Status != StatusAwaitingApproval {
			t.Errorf("Status = %s", ec.Status)
		}
		// Already suspended: a second suspension is invalid.
		if err := ec.MarkAwaitingApproval(); err == nil {
			t.Error("second MarkAwaitingApproval() should fail")
		}
	})

	t.Run("resume from suspension", func(t *testing.T) {
		ec := NewExecutionContext("p", ModeDiscovery, "discovery", nil)
		_ = ec.MarkAwaitingApproval()
		if err := ec.MarkRunning(); err != nil {
			t.Fatalf("MarkRunning() = %v", err)
		}
		if ec.Status != StatusRunning {
			t.Errorf("Status = %s, want %s", ec.Status, StatusRunning)
		}
	})

	t.Run("complete sets terminal timestamp", func(t *testing.T) {
		ec := NewExecutionContext("p", ModeDirect, "direct", nil)
		if err := ec.MarkCompleted(); err != nil {
			t.Fatalf("MarkCompleted() = %v", err)
		}
		if !ec.IsTerminal() || ec.CompletedAt == nil {
			t.Error("completed run should be terminal with CompletedAt set")
		}
		if err := ec.MarkRunning(); err == nil {
			t.Error("MarkRunning() on a completed run should fail")
		}
		if err := ec.MarkCompleted(); err == nil {
			t.Error("MarkCompleted() twice should fail")
		}
	})

	t.Run("failed records the error", func(t *testing.T) {
		ec := NewExecutionContext("p", ModeDirect, "direct", nil)
		ec.MarkFailed(errors.New("phase scaffolding: boom"))
		if ec.Status != StatusFailed || ec.Error == "" || ec.CompletedAt == nil {
			t.Errorf("failed run state = %s error=%q", ec.Status, ec.Error)
		}
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		ec := NewExecutionContext("p", ModeDirect, "direct", nil)
		ec.MarkCancelled()
		if !ec.IsTerminal() {
			t.Error("cancelled run should be terminal")
		}
		if err := ec.MarkRunning(); err == nil {
			t.Error("MarkRunning() on a cancelled run should fail")
		}
	})
}

func TestCloneIsDeep(t *testing.T) {
	ec := NewExecutionContext("shop-api", ModeDiscovery, "discovery",
		map[string]interface{}{"project_overview": "original"})
	ec.RecordPhase("input", &PhaseResult{
		Status: PhaseCompleted,
		AgentResults: map[string]*AgentOutput{
			"input_validator": Success(map[string]interface{}{"valid": true}),
		},
	})
	ec.ActivatedExperts = []ExpertMatch{{Domain: "finance", AgentID: "finance_expert", Score: 0.8}}

	clone := ec.Clone()

	ec.InputData["project_overview"] = "mutated"
	ec.PhaseResults["input"].Status = PhasePartialFailure
	ec.PhaseResults["input"].AgentResults["input_validator"].Output["valid"] = false
	ec.CompletedPhases[0] = "other"
	ec.ActivatedExperts[0].Score = 0.1

	if clone.InputData["project_overview"] != "original" {
		t.Error("clone shares InputData with the original")
	}
	if clone.PhaseResults["input"].Status != PhaseCompleted {
		t.Error("clone shares PhaseResults with the original")
	}
	if clone.PhaseResults["input"].AgentResults["input_validator"].Output["valid"] != true {
		t.Error("clone shares nested agent output with the original")
	}
	if clone.CompletedPhases[0] != "input" {
		t.Error("clone shares CompletedPhases with the original")
	}
	if clone.ActivatedExperts[0].Score != 0.8 {
		t.Error("clone shares ActivatedExperts with the original")
	}
}
