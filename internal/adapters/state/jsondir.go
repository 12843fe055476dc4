package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// JSONStore persists each project as a checksummed JSON file under a state
// directory, with gates in a sibling file. Writes are atomic and keep one
// backup generation; a corrupt primary falls back to the backup on load.
type JSONStore struct {
	dir string
}

// NewJSONStore creates a JSON directory store rooted at dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, core.ErrValidation(core.CodeInvalidInput, "state directory cannot be empty")
	}
	for _, sub := range []string{"projects", "gates"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}
	return &JSONStore{dir: dir}, nil
}

// contextEnvelope wraps a persisted context with integrity metadata.
type contextEnvelope struct {
	Version   int                    `json:"version"`
	Checksum  string                 `json:"checksum"`
	UpdatedAt time.Time              `json:"updated_at"`
	Context   *core.ExecutionContext `json:"context"`
}

// gatesEnvelope wraps a project's gate history.
type gatesEnvelope struct {
	Version   int                  `json:"version"`
	Checksum  string               `json:"checksum"`
	UpdatedAt time.Time            `json:"updated_at"`
	Gates     []*core.ApprovalGate `json:"gates"`
}

// Save persists the context atomically, keeping the previous version as a
// backup.
func (s *JSONStore) Save(_ context.Context, ec *core.ExecutionContext) error {
	if err := ec.Validate(); err != nil {
		return err
	}
	path, err := s.projectPath(ec.ProjectID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(ec)
	if err != nil {
		return fmt.Errorf("marshaling context: %w", err)
	}
	envelope := contextEnvelope{
		Version:   1,
		Checksum:  checksumOf(body),
		UpdatedAt: time.Now(),
		Context:   ec,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := s.backup(path); err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
	}
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// Load returns the context for a project, falling back to the backup when
// the primary file fails integrity checks.
func (s *JSONStore) Load(_ context.Context, projectID string) (*core.ExecutionContext, error) {
	path, err := s.projectPath(projectID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, core.ErrNotFound("project", projectID)
	}

	ec, err := loadContextFile(path)
	if err != nil {
		backup, backupErr := loadContextFile(path + ".bak")
		if backupErr != nil {
			return nil, fmt.Errorf("loading state: %w (backup also failed: %v)", err, backupErr)
		}
		return backup, nil
	}
	return ec, nil
}

// Delete removes a project's context, gates, and backups.
func (s *JSONStore) Delete(_ context.Context, projectID string) error {
	path, err := s.projectPath(projectID)
	if err != nil {
		return err
	}
	gates, err := s.gatesPath(projectID)
	if err != nil {
		return err
	}
	for _, p := range []string{path, path + ".bak", gates, gates + ".bak"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing state file: %w", err)
		}
	}
	return nil
}

// ListByStatus scans the projects directory and returns every context in
// the given status. Files that fail to load are skipped; they surface
// their error on a direct Load.
func (s *JSONStore) ListByStatus(_ context.Context, status core.ProjectStatus) ([]*core.ExecutionContext, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "projects"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state directory: %w", err)
	}

	var out []*core.ExecutionContext
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ec, err := loadContextFile(filepath.Join(s.dir, "projects", name))
		if err != nil {
			continue
		}
		if ec.Status == status {
			out = append(out, ec)
		}
	}
	return out, nil
}

// Close releases nothing; it satisfies the port.
func (s *JSONStore) Close() error {
	return nil
}

// SaveGate persists a gate, replacing any prior version with the same id.
func (s *JSONStore) SaveGate(ctx context.Context, gate *core.ApprovalGate) error {
	path, err := s.gatesPath(gate.ProjectID)
	if err != nil {
		return err
	}

	gates, err := s.ListGates(ctx, gate.ProjectID)
	if err != nil {
		return err
	}
	replaced := false
	for i, g := range gates {
		if g.GateID == gate.GateID {
			gates[i] = gate
			replaced = true
			break
		}
	}
	if !replaced {
		gates = append(gates, gate)
	}

	body, err := json.Marshal(gates)
	if err != nil {
		return fmt.Errorf("marshaling gates: %w", err)
	}
	envelope := gatesEnvelope{
		Version:   1,
		Checksum:  checksumOf(body),
		UpdatedAt: time.Now(),
		Gates:     gates,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling gates envelope: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := s.backup(path); err != nil {
			return fmt.Errorf("creating gates backup: %w", err)
		}
	}
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing gates file: %w", err)
	}
	return nil
}

// ListGates returns all gates for a project, oldest first.
func (s *JSONStore) ListGates(_ context.Context, projectID string) ([]*core.ApprovalGate, error) {
	path, err := s.gatesPath(projectID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the validated project id
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading gates file: %w", err)
	}

	var envelope gatesEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshaling gates envelope: %w", err)
	}
	body, err := json.Marshal(envelope.Gates)
	if err != nil {
		return nil, fmt.Errorf("marshaling gates for checksum: %w", err)
	}
	if checksumOf(body) != envelope.Checksum {
		return nil, core.ErrState(core.CodeStateCorrupted, "gates checksum mismatch")
	}
	return envelope.Gates, nil
}

// Dir returns the store's root directory.
func (s *JSONStore) Dir() string {
	return s.dir
}

func (s *JSONStore) projectPath(projectID string) (string, error) {
	if err := validateFileID(projectID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, "projects", projectID+".json"), nil
}

func (s *JSONStore) gatesPath(projectID string) (string, error) {
	if err := validateFileID(projectID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, "gates", projectID+".json"), nil
}

func (s *JSONStore) backup(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the validated project id
	if err != nil {
		return err
	}
	return atomicWriteFile(path+".bak", data, 0o644)
}

func loadContextFile(path string) (*core.ExecutionContext, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the validated project id
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var envelope contextEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if envelope.Context == nil {
		return nil, core.ErrState(core.CodeStateCorrupted, "envelope carries no context")
	}
	body, err := json.Marshal(envelope.Context)
	if err != nil {
		return nil, fmt.Errorf("marshaling context for checksum: %w", err)
	}
	if checksumOf(body) != envelope.Checksum {
		return nil, core.ErrState(core.CodeStateCorrupted, "checksum mismatch")
	}
	return envelope.Context, nil
}

func checksumOf(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// validateFileID keeps project ids usable as single path elements.
func validateFileID(id string) error {
	if strings.TrimSpace(id) == "" {
		return core.ErrValidation(core.CodeEmptyProjectID, "project id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return core.ErrValidation(core.CodeInvalidInput,
			fmt.Sprintf("project id %q is not filesystem-safe", id))
	}
	return nil
}

var _ Store = (*JSONStore)(nil)
