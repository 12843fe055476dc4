package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// NewStore creates a state store for the named backend rooted in a test
// temp directory, closed automatically when the test finishes.
func NewStore(t *testing.T, backend string) state.Store {
	t.Helper()

	dir := t.TempDir()
	store, err := state.New(backend, filepath.Join(dir, "state"), filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("creating %s store: %v", backend, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// WaitForStatus polls the store until the project reaches the wanted
// status or the deadline passes.
func WaitForStatus(t *testing.T, store core.StateStore, projectID string, want core.ProjectStatus, timeout time.Duration) *core.ExecutionContext {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		ec, err := store.Load(context.Background(), projectID)
		if err == nil && ec.Status == want {
			return ec
		}
		if time.Now().After(deadline) {
			if err != nil {
				t.Fatalf("project %s never reached %s: %v", projectID, want, err)
			}
			t.Fatalf("project %s never reached %s (last status %s)", projectID, want, ec.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitForSettled polls until the project suspends at a gate or becomes
// terminal.
func WaitForSettled(t *testing.T, store core.StateStore, projectID string, timeout time.Duration) *core.ExecutionContext {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		ec, err := store.Load(context.Background(), projectID)
		if err == nil {
			switch ec.Status {
			case core.StatusAwaitingApproval, core.StatusCompleted, core.StatusFailed, core.StatusCancelled:
				return ec
			}
		}
		if time.Now().After(deadline) {
			if err != nil {
				t.Fatalf("project %s never settled: %v", projectID, err)
			}
			t.Fatalf("project %s never settled (last status %s)", projectID, ec.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
