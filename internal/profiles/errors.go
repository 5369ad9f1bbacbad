package profiles

import "fmt"

// ValidationError reports rejected profile input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profile %s: %s", e.Field, e.Reason)
}

// NotFoundError is returned when no profile has the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile %q not found", e.ID)
}
