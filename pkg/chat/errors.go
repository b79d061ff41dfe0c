package chat

import "fmt"

// NotFoundError reports a missing conversation or message.
type NotFoundError struct {
	Kind string // "conversation" or "message"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// FinalizedError reports an attempt to finalize a message that already
// reached a terminal state. Callers treat it as a no-op signal, not a
// failure.
type FinalizedError struct {
	MessageID string
}

func (e *FinalizedError) Error() string {
	return fmt.Sprintf("message %s already finalized", e.MessageID)
}
