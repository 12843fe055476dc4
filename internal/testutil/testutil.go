// Package testutil provides shared fixtures for integration and e2e
// tests: stub agents with call recording, a canned LLM client, state
// store constructors, and environment guards.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TempDir creates a temporary directory that is removed when the test
// finishes.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// TempFile writes content to name inside dir and returns its path.
func TempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file %s: %v", path, err)
	}
	return path
}

// RequireGit skips the test when no git binary is on the PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}
