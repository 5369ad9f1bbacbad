package launch

import "fmt"

// InvalidProjectPathError is returned when the working directory cannot be
// used.
type InvalidProjectPathError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidProjectPathError) Error() string {
	return fmt.Sprintf("project directory %s %s", e.Path, e.Reason)
}

func (e *InvalidProjectPathError) Unwrap() error { return e.Err }

// NoEnabledServersError is returned when a launch would expose no servers.
type NoEnabledServersError struct{}

func (e *NoEnabledServersError) Error() string {
	return "enable at least one server to build a launch command"
}
