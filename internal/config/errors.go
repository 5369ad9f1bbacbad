package config

import (
	"fmt"
	"strings"
)

// VersionError reports a schema version this build cannot read.
type VersionError struct {
	Found     int
	Supported int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported config schema version %d (this build supports up to %d)", e.Found, e.Supported)
}

// InvalidError reports a document that failed structural validation.
type InvalidError struct {
	Problems []string
}

func (e *InvalidError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}
