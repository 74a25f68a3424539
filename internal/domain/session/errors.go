package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no session matches the given identifier.
var ErrNotFound = errors.New("session not found")

// ValidationError reports a rejected field and the reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
