//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/testutil"
)

func buildBinary(t *testing.T) string {
	t.Helper()

	binary := filepath.Join(t.TempDir(), "forgeflow")

	cmd := exec.Command("go", "build", "-o", binary, "../../cmd/forgeflow")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, stderr.String())
	}

	return binary
}

// runCLI executes the binary in dir with extra environment entries. Stdout
// and stderr come back separately; logs go to stderr so stdout stays
// machine-readable.
func runCLI(t *testing.T, binary, dir string, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func TestCLI_Help(t *testing.T) {
	binary := buildBinary(t)

	stdout, stderr, err := runCLI(t, binary, t.TempDir(), nil, "--help")
	if err != nil {
		t.Fatalf("command failed: %v\nstderr: %s", err, stderr)
	}

	for _, want := range []string{
		"Multi-agent workflow orchestrator",
		"start", "resume", "approve", "reject", "status", "serve", "doctor",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	binary := buildBinary(t)

	stdout, stderr, err := runCLI(t, binary, t.TempDir(), nil, "version")
	if err != nil {
		t.Fatalf("command failed: %v\nstderr: %s", err, stderr)
	}

	if !strings.HasPrefix(stdout, "forgeflow ") {
		t.Errorf("version output = %q, want forgeflow prefix", stdout)
	}
	for _, want := range []string{"commit:", "built:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("version output missing %q", want)
		}
	}
}

func TestCLI_DirectWorkflowRun(t *testing.T) {
	binary := buildBinary(t)
	dir := testutil.TempDir(t)
	env := []string{"FORGEFLOW_STATE_BACKEND=json"}

	stdout, stderr, err := runCLI(t, binary, dir, env,
		"start", "--mode", "direct", "--project", "demo",
		"--set", "project_name=demo-api",
		"--set", "project_type=api",
		"--set", "language_stack=go",
		"--set", "include_repo=false",
		"--set", "include_jira=false",
	)
	if err != nil {
		t.Fatalf("start failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}
	if !strings.Contains(stdout, "completed (4 phases)") {
		t.Fatalf("start output = %q, want completion message", stdout)
	}

	// The scaffolded tree lives under the default workspace.
	readme := filepath.Join(dir, ".forgeflow", "workspace", "demo-api", "README.md")
	if _, err := os.Stat(readme); err != nil {
		t.Fatalf("scaffolded README: %v", err)
	}

	stdout, stderr, err = runCLI(t, binary, dir, env, "status", "demo", "--json")
	if err != nil {
		t.Fatalf("status failed: %v\nstderr: %s", err, stderr)
	}
	var status struct {
		Status  string `json:"status"`
		Percent int    `json:"percent"`
	}
	if err := json.Unmarshal([]byte(stdout), &status); err != nil {
		t.Fatalf("decoding status output: %v\nstdout: %s", err, stdout)
	}
	if status.Status != "completed" || status.Percent != 100 {
		t.Fatalf("status = %s/%d%%, want completed/100%%", status.Status, status.Percent)
	}

	stdout, stderr, err = runCLI(t, binary, dir, env, "resume", "demo")
	if err != nil {
		t.Fatalf("resume failed: %v\nstderr: %s", err, stderr)
	}
	if !strings.Contains(stdout, "already completed; nothing to resume") {
		t.Fatalf("resume output = %q, want terminal notice", stdout)
	}
}

func TestCLI_StatusUnknownProject(t *testing.T) {
	binary := buildBinary(t)

	stdout, stderr, err := runCLI(t, binary, testutil.TempDir(t), nil, "status", "ghost")
	if err == nil {
		t.Fatalf("status for unknown project succeeded:\n%s", stdout)
	}
	if !strings.Contains(stderr, "ghost") {
		t.Errorf("error output %q does not name the project", stderr)
	}
}

func TestCLI_AgentsList(t *testing.T) {
	binary := buildBinary(t)

	stdout, stderr, err := runCLI(t, binary, testutil.TempDir(t), nil, "agents", "list")
	if err != nil {
		t.Fatalf("command failed: %v\nstderr: %s", err, stderr)
	}

	for _, want := range []string{"input_validator", "filesystem_scaffolder", "summary_reporter", "native"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("agents list missing %q", want)
		}
	}
}

func TestCLI_Doctor(t *testing.T) {
	testutil.RequireGit(t)

	binary := buildBinary(t)
	env := []string{
		// git stands in for the LLM command so the required check passes
		// on a bare CI host.
		"FORGEFLOW_LLM_COMMAND=git",
		"FORGEFLOW_STATE_BACKEND=memory",
	}

	stdout, stderr, err := runCLI(t, binary, testutil.TempDir(t), env, "doctor")
	if err != nil {
		t.Fatalf("doctor failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}
	if !strings.Contains(stdout, "All required checks passed") {
		t.Fatalf("doctor output = %q, want success notice", stdout)
	}
}
