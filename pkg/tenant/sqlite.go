package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS tenant_settings (
    tenant_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (tenant_id, key)
);

CREATE INDEX IF NOT EXISTS idx_tenant_settings_tenant ON tenant_settings(tenant_id);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (and if necessary creates) the tenant settings
// database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("tenant settings db path cannot be empty")
	}

	// modernc's driver takes pragmas in _pragma=name(value) form; the
	// mattn-style _journal_mode keys are silently ignored.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant settings database: %w", err)
	}

	if _, err := db.Exec(settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tenant settings schema: %w", err)
	}

	logger := slog.Default().With("component", "tenant.store")
	logger.Info("tenant settings store initialized", "path", path)

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Get returns the value for a tenant-scoped key.
func (s *SQLiteStore) Get(ctx context.Context, tenantID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM tenant_settings WHERE tenant_id = ? AND key = ?",
		tenantID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s/%s: %w", tenantID, key, err)
	}
	return value, true, nil
}

// Set writes the value for a tenant-scoped key.
func (s *SQLiteStore) Set(ctx context.Context, tenantID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(tenant_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, tenantID, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s/%s: %w", tenantID, key, err)
	}
	return nil
}

// Delete removes a tenant-scoped key.
func (s *SQLiteStore) Delete(ctx context.Context, tenantID, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM tenant_settings WHERE tenant_id = ? AND key = ?",
		tenantID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s/%s: %w", tenantID, key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
