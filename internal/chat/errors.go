package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHandler is returned when an operation needs a listener slot that is empty
	ErrMissingHandler = errors.New("no listener registered")

	// ErrActionNotFound is returned when removing an action timetoken that is not active
	ErrActionNotFound = errors.New("message action not found")

	// ErrUUIDNotFound is returned when looking up metadata for an unknown user
	ErrUUIDNotFound = errors.New("uuid not found")
)

func missingHandler(event EventName) error {
	return fmt.Errorf("%w for %q events", ErrMissingHandler, event)
}
