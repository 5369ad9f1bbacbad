package servers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

// dangerousCommandChars may not appear in a stdio command.
const dangerousCommandChars = ";&|`$()<>\n\r"

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;\s*\w`),
	regexp.MustCompile(`&&`),
	regexp.MustCompile(`\|\|`),
	regexp.MustCompile("`"),
	regexp.MustCompile(`\$\(`),
}

// Validate checks a descriptor before it is stored.
func Validate(s config.ServerDescriptor) error {
	if !config.ValidServerID(s.ID) {
		return &ValidationError{ID: s.ID, Field: "id", Reason: "must start with a letter or digit and contain only letters, digits, '.', '_' or '-'"}
	}
	switch s.Type {
	case config.TransportStdio:
		if err := ValidateCommand(s.CommandOrURL, s.Args); err != nil {
			err.ID = s.ID
			return err
		}
		if len(s.Headers) > 0 {
			return &ValidationError{ID: s.ID, Field: "headers", Reason: "only http servers take headers"}
		}
	case config.TransportHTTP:
		if err := ValidateURL(s.CommandOrURL); err != nil {
			err.ID = s.ID
			return err
		}
		for k := range s.Headers {
			if strings.TrimSpace(k) == "" {
				return &ValidationError{ID: s.ID, Field: "headers", Reason: "header name must not be empty"}
			}
		}
	default:
		return &ValidationError{ID: s.ID, Field: "type", Reason: fmt.Sprintf("%q is not stdio or http", s.Type)}
	}
	for k := range s.Env {
		if strings.TrimSpace(k) == "" || strings.ContainsAny(k, "=\x00") {
			return &ValidationError{ID: s.ID, Field: "env", Reason: fmt.Sprintf("%q is not a valid variable name", k)}
		}
	}
	return nil
}

// ValidateCommand rejects empty commands, shell metacharacters in the
// command and injection patterns in the arguments.
func ValidateCommand(command string, args []string) *ValidationError {
	if strings.TrimSpace(command) == "" {
		return &ValidationError{Field: "command", Reason: "must not be empty"}
	}
	if i := strings.IndexAny(command, dangerousCommandChars); i >= 0 {
		return &ValidationError{Field: "command", Reason: fmt.Sprintf("contains forbidden character %q", command[i])}
	}
	for _, arg := range args {
		for _, re := range injectionPatterns {
			if re.MatchString(arg) {
				return &ValidationError{Field: "args", Reason: fmt.Sprintf("argument %q looks like shell injection", arg)}
			}
		}
	}
	return nil
}

// ValidateURL requires an absolute http or https URL with a host.
func ValidateURL(raw string) *ValidationError {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Field: "url", Reason: "must not be empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if u.Scheme == "" {
		return &ValidationError{Field: "url", Reason: "must have a scheme (http:// or https://)"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("scheme must be http or https, got %s", u.Scheme)}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Reason: "must have a host"}
	}
	return nil
}
