package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore persists contexts and gates in a single SQLite database. The
// full context travels as a checksummed JSON blob; identity and status
// columns are extracted only for listing.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	// WAL keeps concurrent readers cheap; busy_timeout covers writer overlap.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration.
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Save persists the context, replacing any prior version.
func (s *SQLiteStore) Save(ctx context.Context, ec *core.ExecutionContext) error {
	if err := ec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(ec)
	if err != nil {
		return fmt.Errorf("marshaling context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (
			project_id, mode, status, current_phase, context, checksum,
			started_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			mode = excluded.mode,
			status = excluded.status,
			current_phase = excluded.current_phase,
			context = excluded.context,
			checksum = excluded.checksum,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`,
		ec.ProjectID, string(ec.Mode), string(ec.Status),
		nullableString([]byte(ec.CurrentPhase)), string(body), checksumOf(body),
		ec.StartedAt, nullableTime(ec.CompletedAt), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upserting project: %w", err)
	}
	return nil
}

// Load returns the context for a project.
func (s *SQLiteStore) Load(ctx context.Context, projectID string) (*core.ExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body, checksum string
	err := s.db.QueryRowContext(ctx,
		"SELECT context, checksum FROM projects WHERE project_id = ?", projectID,
	).Scan(&body, &checksum)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("project", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return decodeContext(body, checksum)
}

// Delete removes a project's context and gates.
func (s *SQLiteStore) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM approval_gates WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("deleting gates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListByStatus returns all contexts currently in the given status, oldest
// first. Rows that fail integrity checks are skipped; they surface their
// error on a direct Load.
func (s *SQLiteStore) ListByStatus(ctx context.Context, status core.ProjectStatus) ([]*core.ExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT context, checksum FROM projects WHERE status = ? ORDER BY started_at, project_id",
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []*core.ExecutionContext
	for rows.Next() {
		var body, checksum string
		if err := rows.Scan(&body, &checksum); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		ec, err := decodeContext(body, checksum)
		if err != nil {
			continue
		}
		out = append(out, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return out, nil
}

// SaveGate persists a gate, replacing any prior version with the same id.
func (s *SQLiteStore) SaveGate(ctx context.Context, gate *core.ApprovalGate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var artifactJSON []byte
	if gate.Artifact != nil {
		var err error
		artifactJSON, err = json.Marshal(gate.Artifact)
		if err != nil {
			return fmt.Errorf("marshaling artifact: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_gates (
			gate_id, project_id, phase, status, feedback, artifact,
			created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gate_id) DO UPDATE SET
			status = excluded.status,
			feedback = excluded.feedback,
			artifact = excluded.artifact,
			resolved_at = excluded.resolved_at
	`,
		gate.GateID, gate.ProjectID, gate.Phase, string(gate.Status),
		nullableString([]byte(gate.Feedback)), nullableString(artifactJSON),
		gate.CreatedAt, nullableTime(gate.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting gate: %w", err)
	}
	return nil
}

// ListGates returns all gates for a project, oldest first.
func (s *SQLiteStore) ListGates(ctx context.Context, projectID string) ([]*core.ApprovalGate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT gate_id, project_id, phase, status, feedback, artifact,
		       created_at, resolved_at
		FROM approval_gates WHERE project_id = ?
		ORDER BY created_at, gate_id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing gates: %w", err)
	}
	defer rows.Close()

	var out []*core.ApprovalGate
	for rows.Next() {
		gate, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning gate: %w", err)
		}
		out = append(out, gate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gates: %w", err)
	}
	return out, nil
}

func scanGate(rows *sql.Rows) (*core.ApprovalGate, error) {
	var gate core.ApprovalGate
	var status string
	var feedback, artifact sql.NullString
	var resolvedAt sql.NullTime

	err := rows.Scan(
		&gate.GateID, &gate.ProjectID, &gate.Phase, &status,
		&feedback, &artifact, &gate.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	gate.Status = core.ApprovalStatus(status)
	if feedback.Valid {
		gate.Feedback = feedback.String
	}
	if artifact.Valid && artifact.String != "" {
		gate.Artifact = &core.PhaseResult{}
		if err := json.Unmarshal([]byte(artifact.String), gate.Artifact); err != nil {
			return nil, fmt.Errorf("unmarshaling artifact: %w", err)
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		gate.ResolvedAt = &t
	}
	return &gate, nil
}

func decodeContext(body, checksum string) (*core.ExecutionContext, error) {
	if checksumOf([]byte(body)) != checksum {
		return nil, core.ErrState(core.CodeStateCorrupted, "checksum mismatch")
	}
	var ec core.ExecutionContext
	if err := json.Unmarshal([]byte(body), &ec); err != nil {
		return nil, fmt.Errorf("unmarshaling context: %w", err)
	}
	return &ec, nil
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Store = (*SQLiteStore)(nil)
