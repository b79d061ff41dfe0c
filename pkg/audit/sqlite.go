package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id                TEXT PRIMARY KEY,
	request_id        TEXT NOT NULL,
	tenant_id         TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	conversation_id   TEXT NOT NULL DEFAULT '',
	message_id        TEXT NOT NULL DEFAULT '',
	method            TEXT NOT NULL,
	path              TEXT NOT NULL,
	upstream_url      TEXT NOT NULL,
	model             TEXT NOT NULL,
	request_headers   TEXT NOT NULL DEFAULT '',
	mode              TEXT NOT NULL,
	status_code       INTEGER NOT NULL,
	request_body      TEXT NOT NULL DEFAULT '',
	response_body     TEXT NOT NULL DEFAULT '',
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	error             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_records(tenant_id);
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_records(created_at);
`

// SQLiteStore is the durable audit backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the audit database at path, enabling
// WAL mode for concurrent writers.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Cause: err}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "audit.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return &StorageError{Backend: "sqlite", Op: "enable_wal", Cause: err}
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set_busy_timeout", Cause: err}
	}
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create_schema", Cause: err}
	}
	return nil
}

// Insert writes one record.
func (s *SQLiteStore) Insert(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, request_id, tenant_id, user_id, conversation_id, message_id,
			method, path, upstream_url, model, request_headers, mode, status_code,
			request_body, response_body,
			prompt_tokens, completion_tokens, total_tokens,
			duration_ms, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, record.TenantID, record.UserID,
		record.ConversationID, record.MessageID,
		record.Method, record.Path, record.UpstreamURL, record.Model,
		record.RequestHeaders, record.Mode, record.StatusCode,
		record.RequestBody, record.ResponseBody,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens,
		record.DurationMS, record.Error, record.CreatedAt,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "insert", Cause: err}
	}
	return nil
}

// List returns records matching the query, newest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]*Record, error) {
	query := `
		SELECT id, request_id, tenant_id, user_id, conversation_id, message_id,
			method, path, upstream_url, model, request_headers, mode, status_code,
			request_body, response_body,
			prompt_tokens, completion_tokens, total_tokens,
			duration_ms, error, created_at
		FROM audit_records WHERE 1=1`
	args := []any{}

	if q.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, q.TenantID)
	}
	if !q.Before.IsZero() {
		query += " AND created_at < ?"
		args = append(args, q.Before)
	}
	query += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Cause: err}
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r := &Record{}
		err := rows.Scan(
			&r.ID, &r.RequestID, &r.TenantID, &r.UserID,
			&r.ConversationID, &r.MessageID,
			&r.Method, &r.Path, &r.UpstreamURL, &r.Model,
			&r.RequestHeaders, &r.Mode, &r.StatusCode,
			&r.RequestBody, &r.ResponseBody,
			&r.PromptTokens, &r.CompletionTokens, &r.TotalTokens,
			&r.DurationMS, &r.Error, &r.CreatedAt,
		)
		if err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan", Cause: err}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Cause: err}
	}
	return records, nil
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "count", Cause: err}
	}
	return count, nil
}

// DeleteBefore removes records created before the cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_records WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "delete_before", Cause: err}
	}
	return res.RowsAffected()
}

// TrimTo removes the oldest records until at most max remain.
func (s *SQLiteStore) TrimTo(ctx context.Context, max int64) (int64, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	excess := count - max
	if excess <= 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_records WHERE id IN (
			SELECT id FROM audit_records
			ORDER BY created_at ASC
			LIMIT ?
		)`, excess)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "trim", Cause: err}
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
