package chat

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const chatSchema = `
CREATE TABLE IF NOT EXISTS conversations (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    archived        INTEGER NOT NULL DEFAULT 0,
    last_message_at TIMESTAMP NOT NULL,
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL,
    deleted_at      TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_tenant_user ON conversations(tenant_id, user_id);

CREATE TABLE IF NOT EXISTS messages (
    id                TEXT PRIMARY KEY,
    conversation_id   TEXT NOT NULL REFERENCES conversations(id),
    tenant_id         TEXT NOT NULL,
    parent_message_id TEXT NOT NULL DEFAULT '',
    role              TEXT NOT NULL,
    content           TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL,
    model             TEXT NOT NULL DEFAULT '',
    prompt_tokens     INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens      INTEGER NOT NULL DEFAULT 0,
    latency_ms        INTEGER NOT NULL DEFAULT 0,
    status_code       INTEGER NOT NULL DEFAULT 0,
    error_detail      TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL,
    deleted_at        TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_tenant ON messages(tenant_id);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (and if necessary creates) the chat database at the
// given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("chat db path cannot be empty")
	}

	// modernc's driver takes pragmas in _pragma=name(value) form; the
	// mattn-style _journal_mode keys are silently ignored.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}

	if _, err := db.Exec(chatSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chat schema: %w", err)
	}

	logger := slog.Default().With("component", "chat.store")
	logger.Info("chat store initialized", "path", path)

	return &SQLiteStore{db: db, logger: logger}, nil
}

// CreateConversation inserts a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = conv.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, tenant_id, user_id, title, archived, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.TenantID, conv.UserID, conv.Title, conv.Archived,
		conv.LastMessageAt, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns one live conversation scoped to the tenant.
func (s *SQLiteStore) GetConversation(ctx context.Context, tenantID, id string) (*Conversation, error) {
	conv := &Conversation{}
	var deletedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, title, archived, last_message_at, created_at, updated_at, deleted_at
		FROM conversations WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		id, tenantID,
	).Scan(&conv.ID, &conv.TenantID, &conv.UserID, &conv.Title, &conv.Archived,
		&conv.LastMessageAt, &conv.CreatedAt, &conv.UpdatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "conversation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation %s: %w", id, err)
	}
	if deletedAt.Valid {
		conv.DeletedAt = &deletedAt.Time
	}
	return conv, nil
}

// ListConversations returns a tenant user's live conversations, most
// recently active first.
func (s *SQLiteStore) ListConversations(ctx context.Context, tenantID, userID string, includeArchived bool) ([]*Conversation, error) {
	query := `
		SELECT id, tenant_id, user_id, title, archived, last_message_at, created_at, updated_at, deleted_at
		FROM conversations
		WHERE tenant_id = ? AND user_id = ? AND deleted_at IS NULL`
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY last_message_at DESC"

	rows, err := s.db.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		var deletedAt sql.NullTime
		err := rows.Scan(&conv.ID, &conv.TenantID, &conv.UserID, &conv.Title, &conv.Archived,
			&conv.LastMessageAt, &conv.CreatedAt, &conv.UpdatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if deletedAt.Valid {
			conv.DeletedAt = &deletedAt.Time
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// RenameConversation updates a conversation's title.
func (s *SQLiteStore) RenameConversation(ctx context.Context, tenantID, id, title string) error {
	return s.updateConversation(ctx, tenantID, id,
		"UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL",
		title)
}

// SetArchived sets or clears a conversation's archived flag.
func (s *SQLiteStore) SetArchived(ctx context.Context, tenantID, id string, archived bool) error {
	return s.updateConversation(ctx, tenantID, id,
		"UPDATE conversations SET archived = ?, updated_at = ? WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL",
		archived)
}

func (s *SQLiteStore) updateConversation(ctx context.Context, tenantID, id, query string, value any) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Kind: "conversation", ID: id}
	}
	return nil
}

// DeleteConversation soft-deletes a conversation and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE conversations SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`,
		now, now, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Kind: "conversation", ID: id}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET deleted_at = ?
		WHERE conversation_id = ? AND deleted_at IS NULL`,
		now, id); err != nil {
		return fmt.Errorf("failed to delete messages of %s: %w", id, err)
	}

	return tx.Commit()
}

// AppendMessage inserts a message in a terminal state.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	return s.insertMessage(ctx, msg)
}

// CreatePlaceholder inserts an in-progress assistant message.
func (s *SQLiteStore) CreatePlaceholder(ctx context.Context, msg *Message) error {
	msg.Role = RoleAssistant
	msg.Status = StatusInProgress
	return s.insertMessage(ctx, msg)
}

func (s *SQLiteStore) insertMessage(ctx context.Context, msg *Message) error {
	// The conversation lookup doubles as the tenant check.
	if _, err := s.GetConversation(ctx, msg.TenantID, msg.ConversationID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, tenant_id, parent_message_id,
			role, content, status, model,
			prompt_tokens, completion_tokens, total_tokens,
			latency_ms, status_code, error_detail,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.TenantID, msg.ParentMessageID,
		msg.Role, msg.Content, msg.Status, msg.Model,
		msg.PromptTokens, msg.CompletionTokens, msg.TotalTokens,
		msg.LatencyMS, msg.StatusCode, msg.ErrorDetail,
		msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = ?, updated_at = ?
		WHERE id = ?`,
		msg.CreatedAt, msg.UpdatedAt, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// Finalize applies the terminal state to an in-progress message. The status
// condition in the UPDATE is the exactly-once guard: a second finalize, or
// a finalize racing a disconnect handler, matches zero rows.
func (s *SQLiteStore) Finalize(ctx context.Context, tenantID, messageID string, final FinalState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET
			content = ?, status = ?,
			prompt_tokens = ?, completion_tokens = ?, total_tokens = ?,
			latency_ms = ?, status_code = ?,
			error_detail = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND status = ?`,
		final.Content, final.Status,
		final.PromptTokens, final.CompletionTokens, final.TotalTokens,
		final.LatencyMS, final.StatusCode,
		final.ErrorDetail, time.Now().UTC(),
		messageID, tenantID, StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize message %s: %w", messageID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize message %s: %w", messageID, err)
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: distinguish an already-terminal message from a missing one.
	var status string
	err = s.db.QueryRowContext(ctx,
		"SELECT status FROM messages WHERE id = ? AND tenant_id = ?",
		messageID, tenantID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return &NotFoundError{Kind: "message", ID: messageID}
	}
	if err != nil {
		return fmt.Errorf("failed to check message %s: %w", messageID, err)
	}
	return &FinalizedError{MessageID: messageID}
}

// ListMessages returns a conversation's live messages in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, tenantID, conversationID string) ([]*Message, error) {
	if _, err := s.GetConversation(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, tenant_id, parent_message_id,
			role, content, status, model,
			prompt_tokens, completion_tokens, total_tokens,
			latency_ms, status_code, error_detail,
			created_at, updated_at, deleted_at
		FROM messages
		WHERE conversation_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		msg := &Message{}
		var deletedAt sql.NullTime
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.TenantID, &msg.ParentMessageID,
			&msg.Role, &msg.Content, &msg.Status, &msg.Model,
			&msg.PromptTokens, &msg.CompletionTokens, &msg.TotalTokens,
			&msg.LatencyMS, &msg.StatusCode, &msg.ErrorDetail,
			&msg.CreatedAt, &msg.UpdatedAt, &deletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if deletedAt.Valid {
			msg.DeletedAt = &deletedAt.Time
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
