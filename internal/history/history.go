// Package history persists an audit log of save/destroy operations across
// all workspaces.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// maxStderrBytes caps the stderr tail stored per operation.
const maxStderrBytes = 64 * 1024

// Record is one provisioning operation against one workspace.
type Record struct {
	ID             string
	Workspace      string
	Op             string // "create", "update", "delete"
	State          string // workspace state at last write
	TemplateDigest string // BLAKE3 hex of the template input, empty for delete
	CreatedAt      time.Time
	CompletedAt    *time.Time
	ExitCode       *int
	Stderr         string
}

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the history database at path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(pctx, `
CREATE TABLE IF NOT EXISTS op_log (
  id              TEXT PRIMARY KEY,
  workspace       TEXT NOT NULL,
  op              TEXT NOT NULL,
  state           TEXT NOT NULL,
  template_digest TEXT,
  created_at      TEXT NOT NULL,
  completed_at    TEXT,
  exit_code       INTEGER,
  stderr          TEXT
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap history schema: %w", err)
	}
	if _, err := db.ExecContext(pctx,
		`CREATE INDEX IF NOT EXISTS op_log_workspace_created_at_idx ON op_log(workspace, created_at);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap history index: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Begin inserts an in-progress row for rec.
func (s *Store) Begin(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is empty")
	}
	if rec.Workspace == "" {
		return fmt.Errorf("workspace is empty")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO op_log(id, workspace, op, state, template_digest, created_at)
VALUES(?, ?, ?, ?, ?, ?);
`, rec.ID, rec.Workspace, rec.Op, rec.State, rec.TemplateDigest, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert op_log: %w", err)
	}
	return nil
}

// Finish marks the operation terminal with its final state, exit code and a
// stderr tail.
func (s *Store) Finish(ctx context.Context, id, state string, exitCode int, stderr string) error {
	if id == "" {
		return fmt.Errorf("record id is empty")
	}
	if len(stderr) > maxStderrBytes {
		stderr = stderr[len(stderr)-maxStderrBytes:]
	}

	completedAt := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
UPDATE op_log
SET state = ?, completed_at = ?, exit_code = ?, stderr = ?
WHERE id = ?;
`, state, completedAt, exitCode, stderr, id)
	if err != nil {
		return fmt.Errorf("update op_log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no op_log row for id %q", id)
	}
	return nil
}

// List returns operations for workspace, newest-first. An empty workspace
// returns operations across all workspaces.
func (s *Store) List(ctx context.Context, workspace string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, workspace, op, state, template_digest, created_at, completed_at, exit_code, stderr
FROM op_log`
	args := []any{}
	if workspace != "" {
		query += ` WHERE workspace = ?`
		args = append(args, workspace)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query op_log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec         Record
			digest      sql.NullString
			createdAtS  string
			completedAt sql.NullString
			exitCode    sql.NullInt64
			stderr      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Workspace, &rec.Op, &rec.State, &digest,
			&createdAtS, &completedAt, &exitCode, &stderr); err != nil {
			return nil, fmt.Errorf("scan op_log row: %w", err)
		}
		rec.TemplateDigest = digest.String
		if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
			rec.CreatedAt = t
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
				rec.CompletedAt = &t
			}
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		rec.Stderr = stderr.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate op_log rows: %w", err)
	}
	return out, nil
}
