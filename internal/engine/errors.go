package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// ProcessError wraps an internal failure while processing a single event.
// The event produced no decision; shared history mutated for earlier events
// is untouched.
type ProcessError struct {
	EventID uuid.UUID
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("processing event %s: %v", e.EventID, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }
