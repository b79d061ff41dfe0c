package audit

import (
	"context"
	"time"
)

// Record is one audit entry for a completed (or failed) completion request.
// A request produces exactly one record, written after its terminal state is
// known: response delivered, stream ended, or error surfaced.
type Record struct {
	// ID is the record's unique identifier.
	ID string `json:"id"`

	// RequestID correlates the record with request logs.
	RequestID string `json:"request_id"`

	// TenantID and UserID identify the caller.
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`

	// ConversationID and MessageID reference the persisted chat rows, when
	// the request was attached to a conversation.
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`

	// Method and Path describe the inbound request; UpstreamURL is the full
	// URL the request was forwarded to.
	Method      string `json:"method"`
	Path        string `json:"path"`
	UpstreamURL string `json:"upstream_url"`

	// Model is the model the request resolved to.
	Model string `json:"model"`

	// RequestHeaders is a JSON-encoded map of selected request headers.
	// Credentials are never included.
	RequestHeaders string `json:"request_headers,omitempty"`

	// Mode is the transport classification: "buffered" or "streaming".
	Mode string `json:"mode"`

	// StatusCode is the status delivered to the caller.
	StatusCode int `json:"status_code"`

	// RequestBody is the forwarded request payload, truncated to the
	// configured limit.
	RequestBody string `json:"request_body,omitempty"`

	// ResponseBody is the response payload. For streams this is the text
	// reconstructed from the relayed chunks, truncated to the configured
	// limit.
	ResponseBody string `json:"response_body,omitempty"`

	// Token usage as reported by the upstream, zero when unreported.
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// DurationMS is wall time from request receipt to terminal state.
	DurationMS int64 `json:"duration_ms"`

	// Error holds the failure description for requests that ended in error,
	// including mid-stream disconnects.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the record was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Query filters audit records. Zero-valued fields are ignored.
type Query struct {
	// TenantID restricts results to one tenant.
	TenantID string

	// Before restricts results to records created before the given time.
	Before time.Time

	// Limit caps the number of returned records; 0 means no cap.
	Limit int
}

// Store persists audit records.
type Store interface {
	// Insert writes one record.
	Insert(ctx context.Context, record *Record) error

	// List returns records matching the query, newest first.
	List(ctx context.Context, q Query) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteBefore removes records created before the cutoff and returns
	// how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimTo removes the oldest records until at most max remain, returning
	// how many were removed.
	TrimTo(ctx context.Context, max int64) (int64, error)

	// Close releases the store.
	Close() error
}
