package servers

import "fmt"

// ValidationError reports a rejected server descriptor.
type ValidationError struct {
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid server %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid server %q %s: %s", e.ID, e.Field, e.Reason)
}

// NotFoundError is returned when no server has the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("server %q not found", e.ID)
}
