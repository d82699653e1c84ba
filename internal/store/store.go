// Package store is the SQLite-backed decision audit log. It records one row
// per dispatched turn for later inspection; routing never depends on it. The
// driver is modernc.org/sqlite, keeping the build CGO-free.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed migrations/001_decision_log.sql
var decisionLogSchema string

// Record is one audited turn.
type Record struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Turn       int       `json:"turn"`
	CreatedAt  time.Time `json:"created_at"`
	RawInput   string    `json:"raw_input"`
	Normalized string    `json:"normalized"`
	Tier       int       `json:"tier"`
	Kind       string    `json:"kind"`
	// Detail carries the decision payload summary: action id, option label,
	// or the clarify prompt.
	Detail string `json:"detail,omitempty"`
}

// Store is the audit database handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer: SQLite behaves best without pool churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return s.migrate()
}

// migrate applies the embedded schema. Idempotent.
func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(decisionLogSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute migration statement: %w", err)
		}
	}
	return tx.Commit()
}

// Append records one turn. Failures are the caller's to log and ignore:
// auditing must never affect routing.
func (s *Store) Append(ctx context.Context, r Record) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (session_id, turn, created_at, raw_input, normalized, tier, kind, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Turn, createdAt, r.RawInput, r.Normalized, r.Tier, r.Kind, r.Detail,
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// Recent returns the most recent records for a session, newest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, turn, created_at, raw_input, normalized, tier, kind, detail
		FROM decisions
		WHERE session_id = ?
		ORDER BY turn DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent decisions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Turn, &r.CreatedAt,
			&r.RawInput, &r.Normalized, &r.Tier, &r.Kind, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TierCounts aggregates how often each tier fired across all sessions.
func (s *Store) TierCounts(ctx context.Context) (map[int]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tier, COUNT(*) FROM decisions GROUP BY tier`)
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var tier int
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		counts[tier] = n
	}
	return counts, rows.Err()
}

// Prune removes records older than the retention window. Zero retainDays is
// a no-op.
func (s *Store) Prune(ctx context.Context, retainDays int) (int64, error) {
	if retainDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retainDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM decisions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune decisions: %w", err)
	}
	return res.RowsAffected()
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
