package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// definitionFrontmatter is the YAML header of an agent definition document.
type definitionFrontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Model       string   `yaml:"model"`
	Tools       []string `yaml:"tools"`
}

// LoadDir scans dir for agent definition documents: markdown files with a
// YAML frontmatter header and the agent instructions as body. The agent id
// is the file name without extension. Malformed documents are logged and
// skipped so a single bad file never blocks startup. A missing directory
// yields an empty result.
func LoadDir(dir string, log *logging.Logger) (map[string]*core.AgentDefinition, error) {
	if log == nil {
		log = logging.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("agent definitions directory not found", "dir", dir)
			return map[string]*core.AgentDefinition{}, nil
		}
		return nil, fmt.Errorf("reading definitions dir: %w", err)
	}

	defs := make(map[string]*core.AgentDefinition)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".md")
		path := filepath.Join(dir, entry.Name())

		def, err := loadDefinition(path, id)
		if err != nil {
			log.Warn("skipping agent definition", "file", path, "error", err)
			continue
		}
		defs[id] = def
	}

	log.Debug("agent definitions loaded", "dir", dir, "count", len(defs))
	return defs, nil
}

func loadDefinition(path, id string) (*core.AgentDefinition, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the scanned directory
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	fmRaw, body, ok := splitFrontmatter(string(content))
	if !ok {
		return nil, fmt.Errorf("missing frontmatter")
	}

	var fm definitionFrontmatter
	if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	if err := validateFrontmatter(fm, id); err != nil {
		return nil, err
	}

	category := core.AgentCategory(fm.Category)
	if fm.Category == "" {
		category = core.CategorySupport
	}

	return &core.AgentDefinition{
		Name:         fm.Name,
		Description:  fm.Description,
		Category:     category,
		Model:        fm.Model,
		Tools:        append([]string(nil), fm.Tools...),
		Instructions: body,
	}, nil
}

func validateFrontmatter(fm definitionFrontmatter, id string) error {
	if strings.TrimSpace(fm.Name) == "" {
		return fmt.Errorf("frontmatter: name is required")
	}
	if fm.Name != id {
		return fmt.Errorf("frontmatter: name %q does not match filename %q", fm.Name, id)
	}
	if fm.Category != "" && !core.ValidAgentCategory(core.AgentCategory(fm.Category)) {
		return fmt.Errorf("frontmatter: invalid category %q", fm.Category)
	}
	return nil
}

// splitFrontmatter splits a document into its YAML header and body.
func splitFrontmatter(raw string) (frontmatter, body string, ok bool) {
	// Normalize Windows line endings for consistent parsing.
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, false
	}

	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		// No closing delimiter: treat as no frontmatter.
		return "", s, false
	}

	frontmatter = rest[:end]
	body = rest[end+len("\n---\n"):]
	body = strings.TrimLeft(body, "\n")
	return frontmatter, body, true
}

// LoadInto loads every definition document in dir into the registry.
func (r *Registry) LoadInto(dir string) error {
	defs, err := LoadDir(dir, r.log)
	if err != nil {
		return err
	}
	for id, def := range defs {
		if err := r.RegisterDefinition(id, def); err != nil {
			return err
		}
	}
	return nil
}
