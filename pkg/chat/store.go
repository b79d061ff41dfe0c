package chat

import "context"

// Store persists conversations and messages. Implementations scope every
// read and write by tenant so one tenant can never touch another's rows,
// and exclude soft-deleted rows from reads.
type Store interface {
	// CreateConversation inserts a new conversation.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetConversation returns one conversation, or *NotFoundError.
	GetConversation(ctx context.Context, tenantID, id string) (*Conversation, error)

	// ListConversations returns a tenant user's conversations, most
	// recently active first. Archived conversations are included only
	// when includeArchived is set.
	ListConversations(ctx context.Context, tenantID, userID string, includeArchived bool) ([]*Conversation, error)

	// RenameConversation updates a conversation's title.
	RenameConversation(ctx context.Context, tenantID, id, title string) error

	// SetArchived sets or clears a conversation's archived flag.
	SetArchived(ctx context.Context, tenantID, id string, archived bool) error

	// DeleteConversation soft-deletes a conversation. The row and its
	// messages remain on disk but disappear from reads.
	DeleteConversation(ctx context.Context, tenantID, id string) error

	// AppendMessage inserts a message in a terminal state, such as the
	// user's prompt.
	AppendMessage(ctx context.Context, msg *Message) error

	// CreatePlaceholder inserts an assistant message with
	// StatusInProgress and empty content.
	CreatePlaceholder(ctx context.Context, msg *Message) error

	// Finalize applies the terminal state to an in-progress message.
	// Returns *FinalizedError when the message already left in_progress,
	// and *NotFoundError when it does not exist.
	Finalize(ctx context.Context, tenantID, messageID string, final FinalState) error

	// ListMessages returns a conversation's messages in creation order.
	ListMessages(ctx context.Context, tenantID, conversationID string) ([]*Message, error)

	// Close releases the store.
	Close() error
}
