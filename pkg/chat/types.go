package chat

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message statuses. A message is terminal once completed or errored;
// in_progress marks an assistant placeholder awaiting its completion.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Conversation groups an ordered sequence of messages for one tenant user.
// Conversations are soft-deleted only; DeletedAt marks removal and deleted
// rows are excluded from reads.
type Conversation struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`

	// Archived hides the conversation from default listings without
	// removing it.
	Archived bool `json:"archived"`

	// LastMessageAt is the creation time of the newest message.
	LastMessageAt time.Time `json:"last_message_at"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Message is one entry in a conversation.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	TenantID       string `json:"tenant_id"`

	// ParentMessageID threads an assistant message to the user message
	// that provoked it.
	ParentMessageID string `json:"parent_message_id,omitempty"`

	Role    string `json:"role"`
	Content string `json:"content"`
	Status  string `json:"status"`
	Model   string `json:"model,omitempty"`

	// Token usage, populated on finalize when the upstream reported it.
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// LatencyMS is the completion's wall time; StatusCode the upstream
	// HTTP status. Both are set on finalize.
	LatencyMS  int64 `json:"latency_ms,omitempty"`
	StatusCode int   `json:"status_code,omitempty"`

	// ErrorDetail holds the failure description for errored messages.
	ErrorDetail string `json:"error_detail,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// FinalState carries the terminal data applied to a placeholder message.
type FinalState struct {
	// Status must be StatusCompleted or StatusError.
	Status string

	// Content is the completed text. For errored messages it holds
	// whatever partial text was relayed before the failure.
	Content string

	// Token usage, zero when unreported.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// LatencyMS is the completion's wall time.
	LatencyMS int64

	// StatusCode is the upstream HTTP status delivered to the caller.
	StatusCode int

	// ErrorDetail describes the failure for StatusError.
	ErrorDetail string
}
