package agents

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

const gitTimeout = 30 * time.Second

// GitProvisioner initializes a git repository in the scaffolded tree: an
// initial commit on main, then dev and test branches with dev checked out.
// It shells out to the git CLI; pushing to a remote is the external
// collaborator's concern.
type GitProvisioner struct {
	timeout time.Duration
	log     *logging.Logger
}

// NewGitProvisioner creates the git provisioning agent.
func NewGitProvisioner(log *logging.Logger) *GitProvisioner {
	if log == nil {
		log = logging.NewNop()
	}
	return &GitProvisioner{timeout: gitTimeout, log: log}
}

func (a *GitProvisioner) ID() string { return "git_provisioner" }

func (a *GitProvisioner) Category() core.AgentCategory { return core.CategoryScaffolding }

func (a *GitProvisioner) Execute(ctx context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	if !contextBool(in.Context, "include_repo", true) {
		out := core.Success(map[string]any{"skipped": true})
		out.Messages = []string{"repository provisioning disabled"}
		return out, nil
	}

	dir := projectPath(in)
	if dir == "" {
		return core.Failure("no project path available for git provisioning"), nil
	}
	if _, err := exec.LookPath("git"); err != nil {
		return core.Failure("git not found in PATH"), nil
	}

	// A replayed scaffolding phase must not rename or reset branches in a
	// repository provisioned by an earlier run.
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		branch, _ := a.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
		out := core.Success(map[string]any{
			"initialized":    false,
			"current_branch": branch,
		})
		out.Messages = []string{"repository already initialized"}
		return out, nil
	}

	steps := [][]string{
		{"init"},
		{"config", "user.email", "forgeflow@local"},
		{"config", "user.name", "ForgeFlow"},
		{"add", "-A"},
		{"commit", "-m", "Initial commit"},
		{"branch", "-M", "main"},
		{"branch", "dev"},
		{"branch", "test"},
		{"checkout", "dev"},
	}
	for _, args := range steps {
		if _, err := a.run(ctx, dir, args...); err != nil {
			return core.Failure(err.Error()), nil
		}
	}

	commit, err := a.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return core.Failure(err.Error()), nil
	}

	a.log.WithAgent(a.ID()).WithProject(in.ProjectID).Info("repository initialized",
		"path", dir,
		"commit", commit,
	)

	out := core.Success(map[string]any{
		"initialized":    true,
		"commit":         commit,
		"branches":       []any{"main", "dev", "test"},
		"current_branch": "dev",
	})
	out.Messages = []string{"initialized git repository on branch dev"}
	return out, nil
}

// run executes one git command in dir.
func (a *GitProvisioner) run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out", strings.Join(args, " "))
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

var _ core.Agent = (*GitProvisioner)(nil)
