package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager drives the message lifecycle around a completion request: record
// the user's prompt, create the assistant placeholder, and finalize it once
// the outcome is known.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:  store,
		logger: slog.Default().With("component", "chat.lifecycle"),
	}
}

// Store exposes the underlying store for conversation CRUD.
func (m *Manager) Store() Store {
	return m.store
}

// Begin records the user prompt and creates the assistant placeholder for
// one completion request. The placeholder threads to the user message via
// its parent reference. The returned Turn finalizes the placeholder.
func (m *Manager) Begin(ctx context.Context, tenantID, conversationID, prompt, model string) (*Turn, error) {
	now := time.Now().UTC()

	userMsg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		Role:           RoleUser,
		Content:        prompt,
		Status:         StatusCompleted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	placeholder := &Message{
		ID:              uuid.New().String(),
		ConversationID:  conversationID,
		TenantID:        tenantID,
		ParentMessageID: userMsg.ID,
		Model:           model,
		CreatedAt:       now.Add(time.Microsecond), // orders after the prompt
		UpdatedAt:       now.Add(time.Microsecond),
	}
	if err := m.store.CreatePlaceholder(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("failed to create placeholder: %w", err)
	}

	m.logger.Debug("turn started",
		"conversation_id", conversationID,
		"user_message_id", userMsg.ID,
		"assistant_message_id", placeholder.ID,
	)

	return &Turn{
		manager:        m,
		tenantID:       tenantID,
		conversationID: conversationID,
		userMessageID:  userMsg.ID,
		messageID:      placeholder.ID,
		startedAt:      now,
	}, nil
}

// Turn is one in-flight completion's handle on its placeholder message.
// Complete and Fail are each safe to call at most once in any order; the
// first call wins and later calls are no-ops. The in-process flag is a fast
// path; the store's conditional update is the authoritative guard.
type Turn struct {
	manager        *Manager
	tenantID       string
	conversationID string
	userMessageID  string
	messageID      string
	startedAt      time.Time

	mu        sync.Mutex
	finalized bool
}

// ConversationID returns the conversation this turn belongs to.
func (t *Turn) ConversationID() string {
	return t.conversationID
}

// MessageID returns the assistant placeholder's ID.
func (t *Turn) MessageID() string {
	return t.messageID
}

// UserMessageID returns the ID of the user message that provoked the turn.
func (t *Turn) UserMessageID() string {
	return t.userMessageID
}

// Complete finalizes the placeholder with the completed text.
func (t *Turn) Complete(ctx context.Context, content string, statusCode, promptTokens, completionTokens, totalTokens int) error {
	return t.finalize(ctx, FinalState{
		Status:           StatusCompleted,
		Content:          content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
		StatusCode:       statusCode,
		LatencyMS:        time.Since(t.startedAt).Milliseconds(),
	})
}

// Fail finalizes the placeholder as errored, keeping whatever partial text
// was relayed before the failure.
func (t *Turn) Fail(ctx context.Context, partial, errDetail string, statusCode int) error {
	return t.finalize(ctx, FinalState{
		Status:      StatusError,
		Content:     partial,
		ErrorDetail: errDetail,
		StatusCode:  statusCode,
		LatencyMS:   time.Since(t.startedAt).Milliseconds(),
	})
}

func (t *Turn) finalize(ctx context.Context, final FinalState) error {
	t.mu.Lock()
	if t.finalized {
		t.mu.Unlock()
		return nil
	}
	t.finalized = true
	t.mu.Unlock()

	err := t.manager.store.Finalize(ctx, t.tenantID, t.messageID, final)

	var finalizedErr *FinalizedError
	if errors.As(err, &finalizedErr) {
		t.manager.logger.Debug("message already finalized",
			"message_id", t.messageID,
		)
		return nil
	}
	if err != nil {
		return err
	}

	t.manager.logger.Debug("turn finalized",
		"message_id", t.messageID,
		"status", final.Status,
	)
	return nil
}
