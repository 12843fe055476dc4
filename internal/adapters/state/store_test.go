package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// newTestContext builds a context two phases into a discovery run.
func newTestContext(projectID string) *core.ExecutionContext {
	ec := core.NewExecutionContext(projectID, core.ModeDiscovery, "AI Discovery Workflow", map[string]interface{}{
		"project_overview": "Patient records system",
		"project_type":     "web-app",
	})
	ec.ActivatedExperts = []core.ExpertMatch{
		{Domain: "healthcare", AgentID: "healthcare_expert", Score: 0.81},
	}
	ec.RecordPhase("input", &core.PhaseResult{
		Status: core.PhaseCompleted,
		AgentResults: map[string]*core.AgentOutput{
			"input_validator": core.Success(map[string]interface{}{"valid": true}),
		},
	})
	ec.RecordPhase("product_design", &core.PhaseResult{
		Status: core.PhaseCompleted,
		AgentResults: map[string]*core.AgentOutput{
			"po_agent": core.Success(map[string]interface{}{"content": "design doc"}),
		},
	})
	ec.CurrentPhase = "product_design"
	return ec
}

// backends enumerates every store implementation under test.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	jsonStore, err := NewJSONStore(filepath.Join(dir, "json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"json":   jsonStore,
		"sqlite": sqliteStore,
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			original := newTestContext("proj-roundtrip")
			if err := store.Save(ctx, original); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := store.Load(ctx, "proj-roundtrip")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if loaded.ProjectID != original.ProjectID {
				t.Errorf("ProjectID = %s, want %s", loaded.ProjectID, original.ProjectID)
			}
			if loaded.Mode != core.ModeDiscovery {
				t.Errorf("Mode = %s, want discovery", loaded.Mode)
			}
			if loaded.Status != core.StatusRunning {
				t.Errorf("Status = %s, want running", loaded.Status)
			}
			if loaded.CurrentPhase != "product_design" {
				t.Errorf("CurrentPhase = %s, want product_design", loaded.CurrentPhase)
			}
			if len(loaded.CompletedPhases) != 2 {
				t.Fatalf("CompletedPhases = %v, want 2 entries", loaded.CompletedPhases)
			}
			if loaded.CompletedPhases[0] != "input" || loaded.CompletedPhases[1] != "product_design" {
				t.Errorf("CompletedPhases = %v, want [input product_design]", loaded.CompletedPhases)
			}
			res := loaded.PhaseResults["product_design"]
			if res == nil || res.Status != core.PhaseCompleted {
				t.Fatalf("product_design result = %+v, want completed", res)
			}
			if res.AgentResults["po_agent"].Output["content"] != "design doc" {
				t.Errorf("po_agent output = %v, want design doc", res.AgentResults["po_agent"].Output)
			}
			if len(loaded.ActivatedExperts) != 1 || loaded.ActivatedExperts[0].Domain != "healthcare" {
				t.Errorf("ActivatedExperts = %v, want healthcare", loaded.ActivatedExperts)
			}
			if !loaded.StartedAt.Equal(original.StartedAt) {
				t.Errorf("StartedAt = %v, want %v", loaded.StartedAt, original.StartedAt)
			}
		})
	}
}

func TestStore_LoadMissingProject(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, "no-such-project")
			if err == nil {
				t.Fatal("Load() expected error for missing project")
			}
			if !core.IsNotFound(err) {
				t.Errorf("Load() error = %v, want not-found", err)
			}
		})
	}
}

func TestStore_SaveReplacesPriorVersion(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ec := newTestContext("proj-replace")
			if err := store.Save(ctx, ec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			if err := ec.MarkAwaitingApproval(); err != nil {
				t.Fatalf("MarkAwaitingApproval() error = %v", err)
			}
			if err := store.Save(ctx, ec); err != nil {
				t.Fatalf("Save() second error = %v", err)
			}

			loaded, err := store.Load(ctx, "proj-replace")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.Status != core.StatusAwaitingApproval {
				t.Errorf("Status = %s, want awaiting_approval", loaded.Status)
			}
		})
	}
}

func TestStore_DeleteRemovesContextAndGates(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ec := newTestContext("proj-delete")
			if err := store.Save(ctx, ec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			gate := core.NewApprovalGate("proj-delete", "product_design", ec.PhaseResults["product_design"])
			if err := store.SaveGate(ctx, gate); err != nil {
				t.Fatalf("SaveGate() error = %v", err)
			}

			if err := store.Delete(ctx, "proj-delete"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Load(ctx, "proj-delete"); !core.IsNotFound(err) {
				t.Errorf("Load() after delete error = %v, want not-found", err)
			}
			gates, err := store.ListGates(ctx, "proj-delete")
			if err != nil {
				t.Fatalf("ListGates() error = %v", err)
			}
			if len(gates) != 0 {
				t.Errorf("ListGates() = %d gates, want 0", len(gates))
			}

			// Deleting a missing project is not an error.
			if err := store.Delete(ctx, "proj-delete"); err != nil {
				t.Errorf("Delete() second error = %v", err)
			}
		})
	}
}

func TestStore_ListByStatus(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			running := newTestContext("proj-running")
			if err := store.Save(ctx, running); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			done := newTestContext("proj-done")
			if err := done.MarkCompleted(); err != nil {
				t.Fatalf("MarkCompleted() error = %v", err)
			}
			if err := store.Save(ctx, done); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			stuck, err := store.ListByStatus(ctx, core.StatusRunning)
			if err != nil {
				t.Fatalf("ListByStatus() error = %v", err)
			}
			if len(stuck) != 1 || stuck[0].ProjectID != "proj-running" {
				t.Errorf("ListByStatus(running) = %v, want [proj-running]", projectIDs(stuck))
			}

			completed, err := store.ListByStatus(ctx, core.StatusCompleted)
			if err != nil {
				t.Fatalf("ListByStatus() error = %v", err)
			}
			if len(completed) != 1 || completed[0].ProjectID != "proj-done" {
				t.Errorf("ListByStatus(completed) = %v, want [proj-done]", projectIDs(completed))
			}

			none, err := store.ListByStatus(ctx, core.StatusFailed)
			if err != nil {
				t.Fatalf("ListByStatus() error = %v", err)
			}
			if len(none) != 0 {
				t.Errorf("ListByStatus(failed) = %d entries, want 0", len(none))
			}
		})
	}
}

func TestStore_GateLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			artifact := &core.PhaseResult{
				Status: core.PhaseCompleted,
				AgentResults: map[string]*core.AgentOutput{
					"po_agent": core.Success(map[string]interface{}{"content": "v1"}),
				},
			}
			first := core.NewApprovalGate("proj-gates", "product_design", artifact)
			if err := store.SaveGate(ctx, first); err != nil {
				t.Fatalf("SaveGate() error = %v", err)
			}

			// Resolve and persist the same gate id.
			if err := first.Resolve(core.ApprovalRejected, "needs a second pass on scope"); err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if err := store.SaveGate(ctx, first); err != nil {
				t.Fatalf("SaveGate() resolved error = %v", err)
			}

			second := core.NewApprovalGate("proj-gates", "architecture_design", nil)
			second.GateID = "proj-gates_architecture_design_2"
			second.CreatedAt = first.CreatedAt.Add(time.Minute)
			if err := store.SaveGate(ctx, second); err != nil {
				t.Fatalf("SaveGate() second error = %v", err)
			}

			gates, err := store.ListGates(ctx, "proj-gates")
			if err != nil {
				t.Fatalf("ListGates() error = %v", err)
			}
			if len(gates) != 2 {
				t.Fatalf("ListGates() = %d gates, want 2", len(gates))
			}
			if gates[0].GateID != first.GateID {
				t.Errorf("gates[0] = %s, want %s (oldest first)", gates[0].GateID, first.GateID)
			}
			if gates[0].Status != core.ApprovalRejected {
				t.Errorf("gates[0].Status = %s, want rejected", gates[0].Status)
			}
			if gates[0].Feedback != "needs a second pass on scope" {
				t.Errorf("gates[0].Feedback = %q", gates[0].Feedback)
			}
			if gates[0].ResolvedAt == nil {
				t.Error("gates[0].ResolvedAt should be set")
			}
			if gates[0].Artifact == nil || gates[0].Artifact.AgentResults["po_agent"].Output["content"] != "v1" {
				t.Errorf("gates[0].Artifact = %+v, want po_agent v1", gates[0].Artifact)
			}
			if gates[1].Status != core.ApprovalPending {
				t.Errorf("gates[1].Status = %s, want pending", gates[1].Status)
			}

			// Gates for an unknown project are an empty list, not an error.
			empty, err := store.ListGates(ctx, "proj-unknown")
			if err != nil {
				t.Fatalf("ListGates() unknown project error = %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("ListGates(unknown) = %d gates, want 0", len(empty))
			}
		})
	}
}

func projectIDs(ecs []*core.ExecutionContext) []string {
	ids := make([]string, 0, len(ecs))
	for _, ec := range ecs {
		ids = append(ids, ec.ProjectID)
	}
	return ids
}
