package types

// Message roles accepted in a completion request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in a completion request's message list.
type ChatMessage struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// CompletionRequest is the body of POST /ai/chat/completions. The tenant
// comes from the caller's authenticated binding, never from the body.
type CompletionRequest struct {
	// Model overrides the tenant's default model when set.
	Model string `json:"model,omitempty"`

	// Messages is the conversation context, oldest first. Required and
	// non-empty.
	Messages []ChatMessage `json:"messages"`

	// Temperature is forwarded to the upstream when set.
	Temperature *float64 `json:"temperature,omitempty"`

	// Stream requests incremental delivery. The actual transport follows
	// what the upstream returns, not this flag.
	Stream bool `json:"stream,omitempty"`

	// ConversationID attaches the exchange to a stored conversation.
	// When empty, no messages are persisted.
	ConversationID string `json:"conversation_id,omitempty"`

	// SystemPrompt overrides the tenant's default system prompt when set.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// UpstreamRequest is the payload forwarded to the upstream service. It
// carries only the fields the upstream understands.
type UpstreamRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

// CreateConversationRequest is the body of POST /ai/conversations.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// UpdateConversationRequest is the body of PATCH /ai/conversations/{id}.
// Nil fields are left unchanged.
type UpdateConversationRequest struct {
	Title    *string `json:"title,omitempty"`
	Archived *bool   `json:"archived,omitempty"`
}
