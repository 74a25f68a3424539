package scheduling

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no appointment matches the given identifier.
var ErrNotFound = errors.New("appointment not found")

// ValidationError reports a rejected field and the reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError is returned when a requested slot overlaps existing
// appointments. It carries the conflicting appointments so handlers can
// report them to the caller.
type ConflictError struct {
	Conflicts []*Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot overlaps %d existing appointment(s)", len(e.Conflicts))
}
