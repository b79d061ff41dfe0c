package audit

import "fmt"

// StorageError wraps a failure in an audit storage backend.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// DroppedError reports that a record was dropped because the recorder
// could not enqueue it in time.
type DroppedError struct {
	RecordID string
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("audit record %s dropped: recorder queue full", e.RecordID)
}
