package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/fsutil"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// FilesystemScaffolder materializes the project skeleton on disk: the
// directory layout, a README, the ignore file, and the stack's build
// manifest. Re-running it over an existing tree rewrites the files it owns
// and leaves everything else alone.
type FilesystemScaffolder struct {
	root string
	log  *logging.Logger
}

// NewFilesystemScaffolder creates the scaffolder. Projects without an
// explicit project_path are created under root.
func NewFilesystemScaffolder(root string, log *logging.Logger) *FilesystemScaffolder {
	if root == "" {
		root = "."
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &FilesystemScaffolder{root: root, log: log}
}

func (a *FilesystemScaffolder) ID() string { return "filesystem_scaffolder" }

func (a *FilesystemScaffolder) Category() core.AgentCategory { return core.CategoryScaffolding }

func (a *FilesystemScaffolder) Execute(ctx context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	name := sanitizeName(projectName(in))
	dir := contextString(in.Context, "project_path")
	if dir == "" {
		dir = filepath.Join(a.root, name)
	}
	stack := languageStack(in.Context)

	created := make([]string, 0, 8)
	for _, entry := range projectLayout(name, stack) {
		if err := ctx.Err(); err != nil {
			return core.Failure("scaffolding interrupted: " + err.Error()), nil
		}
		target := filepath.Join(dir, entry.path)
		if entry.dir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return core.Failure("creating directory " + entry.path + ": " + err.Error()), nil
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return core.Failure("creating parent of " + entry.path + ": " + err.Error()), nil
		}
		if err := fsutil.WriteFileScoped(target, []byte(entry.content), 0o644); err != nil {
			return core.Failure("writing " + entry.path + ": " + err.Error()), nil
		}
		created = append(created, entry.path)
	}

	a.log.WithAgent(a.ID()).WithProject(in.ProjectID).Info("project skeleton created",
		"path", dir,
		"files", len(created),
	)

	out := core.Success(map[string]any{
		"project_path":   dir,
		"created_files":  created,
		"language_stack": stack,
	})
	out.Artifacts = []string{dir}
	out.Messages = []string{"created project skeleton at " + dir}
	return out, nil
}

// scaffoldEntry is one node of the project skeleton.
type scaffoldEntry struct {
	path    string
	dir     bool
	content string
}

// projectLayout is the skeleton for one project: the common tree plus the
// stack's build manifest.
func projectLayout(name, stack string) []scaffoldEntry {
	entries := []scaffoldEntry{
		{path: "docs", dir: true},
		{path: "tests", dir: true},
		{path: ".github/workflows", dir: true},
		{path: "README.md", content: "# " + name + "\n"},
		{path: ".gitignore", content: gitignoreFor(stack)},
	}
	switch stack {
	case "node":
		entries = append(entries,
			scaffoldEntry{path: "src", dir: true},
			scaffoldEntry{path: "package.json", content: packageJSON(name)},
		)
	case "go":
		entries = append(entries,
			scaffoldEntry{path: "go.mod", content: "module " + name + "\n\ngo 1.24\n"},
			scaffoldEntry{path: "cmd/" + name + "/main.go", content: goMain(name)},
		)
	case "python":
		entries = append(entries,
			scaffoldEntry{path: "src", dir: true},
			scaffoldEntry{path: "src/__init__.py"},
			scaffoldEntry{path: "pyproject.toml", content: pyproject(name)},
			scaffoldEntry{path: "requirements.txt"},
		)
	default:
		entries = append(entries, scaffoldEntry{path: "src", dir: true})
	}
	return entries
}

func gitignoreFor(stack string) string {
	common := `# IDE
.idea/
.vscode/
*.swp

# Environment
.env
.env.local

# OS
.DS_Store
Thumbs.db
`
	switch stack {
	case "python":
		return common + `
# Python
__pycache__/
*.py[cod]
.venv/
venv/
*.egg-info/
dist/
build/
.pytest_cache/
.mypy_cache/
`
	case "node":
		return common + `
# Node
node_modules/
npm-debug.log
yarn-error.log
dist/
build/
.next/
`
	case "go":
		return common + `
# Go
bin/
*.test
*.out
`
	}
	return common
}

func packageJSON(name string) string {
	return fmt.Sprintf("{\n  \"name\": %q,\n  \"version\": \"0.1.0\",\n  \"private\": true\n}\n", name)
}

func pyproject(name string) string {
	return fmt.Sprintf(`[project]
name = %q
version = "0.1.0"
requires-python = ">=3.11"
dependencies = []

[project.optional-dependencies]
dev = ["pytest", "ruff", "mypy"]
`, name)
}

func goMain(name string) string {
	return fmt.Sprintf("package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(%q)\n}\n", name)
}

var _ core.Agent = (*FilesystemScaffolder)(nil)
