package action

import "errors"

// Domain errors for the action package. Check with errors.Is().
var (
	// ErrNotFound is returned when an action ID does not exist.
	ErrNotFound = errors.New("action: not found")

	// ErrExists is returned when creating an action with a duplicate ID.
	ErrExists = errors.New("action: already exists")

	// ErrInvalid is returned when definition validation fails.
	ErrInvalid = errors.New("action: invalid")

	// ErrInvalidTrigger is returned when a trigger fails structural validation.
	ErrInvalidTrigger = errors.New("action: invalid trigger")

	// ErrInvalidEffect is returned when an effect fails structural validation.
	ErrInvalidEffect = errors.New("action: invalid effect")

	// ErrInvalidStep is returned when a step fails validation.
	ErrInvalidStep = errors.New("action: invalid step")
)
