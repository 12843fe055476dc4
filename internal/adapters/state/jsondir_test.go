package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

func TestJSONStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ctx := context.Background()
	ec := newTestContext("proj-layout")
	if err := store.Save(ctx, ec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	gate := core.NewApprovalGate("proj-layout", "product_design", nil)
	if err := store.SaveGate(ctx, gate); err != nil {
		t.Fatalf("SaveGate() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "projects", "proj-layout.json"))
	if err != nil {
		t.Fatalf("context file missing: %v", err)
	}
	var envelope contextEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if envelope.Version != 1 {
		t.Errorf("Version = %d, want 1", envelope.Version)
	}
	if envelope.Checksum == "" {
		t.Error("Checksum should not be empty")
	}
	if envelope.Context.ProjectID != "proj-layout" {
		t.Errorf("ProjectID = %s, want proj-layout", envelope.Context.ProjectID)
	}

	if _, err := os.Stat(filepath.Join(dir, "gates", "proj-layout.json")); err != nil {
		t.Errorf("gates file missing: %v", err)
	}
}

func TestJSONStore_BackupFallbackOnCorruption(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ctx := context.Background()
	ec := newTestContext("proj-corrupt")
	if err := store.Save(ctx, ec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Second save creates a backup of the first version.
	if err := ec.MarkAwaitingApproval(); err != nil {
		t.Fatalf("MarkAwaitingApproval() error = %v", err)
	}
	if err := store.Save(ctx, ec); err != nil {
		t.Fatalf("Save() second error = %v", err)
	}

	// Truncate the primary file mid-write.
	path := filepath.Join(dir, "projects", "proj-corrupt.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"checksum":"`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loaded, err := store.Load(ctx, "proj-corrupt")
	if err != nil {
		t.Fatalf("Load() error = %v, want backup fallback", err)
	}
	if loaded.Status != core.StatusRunning {
		t.Errorf("Status = %s, want running (first saved version)", loaded.Status)
	}
}

func TestJSONStore_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ctx := context.Background()
	ec := newTestContext("proj-tampered")
	if err := store.Save(ctx, ec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Tamper with the context without updating the checksum. There is no
	// backup yet, so the load must fail.
	path := filepath.Join(dir, "projects", "proj-tampered.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	tampered := strings.Replace(string(data), `"status": "running"`, `"status": "completed"`, 1)
	if tampered == string(data) {
		t.Fatal("tampering did not change the file")
	}
	if err := os.WriteFile(path, []byte(tampered), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err = store.Load(ctx, "proj-tampered")
	if err == nil {
		t.Fatal("Load() expected error for tampered state")
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Load() error = %v, want checksum mismatch", err)
	}
}

func TestJSONStore_RejectsUnsafeProjectIDs(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"../escape", "a/b", `a\b`, " ", ""} {
		ec := core.NewExecutionContext("placeholder", core.ModeDirect, "Direct Scaffolding Workflow", nil)
		ec.ProjectID = id
		if err := store.Save(ctx, ec); err == nil {
			t.Errorf("Save(%q) expected error", id)
		}
		if _, err := store.Load(ctx, id); err == nil {
			t.Errorf("Load(%q) expected error", id)
		}
	}
}

func TestJSONStore_ListSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, newTestContext("proj-good")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	garbage := filepath.Join(dir, "projects", "not-state.json")
	if err := os.WriteFile(garbage, []byte("not json at all"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, err := store.ListByStatus(ctx, core.StatusRunning)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(out) != 1 || out[0].ProjectID != "proj-good" {
		t.Errorf("ListByStatus() = %v, want [proj-good]", projectIDs(out))
	}
}
