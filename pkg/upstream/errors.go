package upstream

import "fmt"

// Error represents a failed upstream call: either a transport failure
// (StatusCode 0, Cause set) or a non-2xx response (StatusCode set, Message
// holds a body snippet).
type Error struct {
	// StatusCode is the upstream HTTP status (0 if the call never produced
	// a response).
	StatusCode int

	// Message is the upstream error body, truncated.
	Message string

	// Cause is the underlying transport error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ConsumedError is returned when a call body is read a second time.
type ConsumedError struct{}

// Error implements the error interface.
func (e *ConsumedError) Error() string {
	return "upstream response body already consumed"
}
