package orchestrator

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore persists audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// OpenSQLiteAuditStore opens (or creates) the database at dsn and wraps it.
func OpenSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLiteAuditStore(db)
}

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	output, err := encodeAuditOutput(event.Output)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_audit_events (
			execution_id, kind, name, step_id, skill, status, output_json, error_text, at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ExecutionID,
		event.Kind,
		event.Name,
		event.StepID,
		event.Skill,
		event.Status,
		string(output),
		event.Error,
		event.At.UTC(),
	)
	return err
}

// List returns audit events matching the filter.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT execution_id, kind, name, step_id, skill, status, output_json, error_text, at
		FROM execution_audit_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.ExecutionID != "" {
		addFilter("execution_id = ?", filter.ExecutionID)
	}
	if filter.Skill != "" {
		addFilter("skill = ?", filter.Skill)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event      AuditEvent
			outputJSON string
			at         sql.NullTime
		)
		if err := rows.Scan(
			&event.ExecutionID,
			&event.Kind,
			&event.Name,
			&event.StepID,
			&event.Skill,
			&event.Status,
			&outputJSON,
			&event.Error,
			&at,
		); err != nil {
			return nil, err
		}
		if output, err := decodeAuditOutput([]byte(outputJSON)); err == nil {
			event.Output = output
		}
		if at.Valid {
			event.At = at.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Close closes the underlying database.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS execution_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			step_id TEXT NOT NULL,
			skill TEXT NOT NULL,
			status TEXT NOT NULL,
			output_json TEXT,
			error_text TEXT,
			at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_exec_audit_execution ON execution_audit_events(execution_id);
		CREATE INDEX IF NOT EXISTS idx_exec_audit_skill ON execution_audit_events(skill);
		CREATE INDEX IF NOT EXISTS idx_exec_audit_status ON execution_audit_events(status);
	`)
	return err
}
