package config

import (
	"fmt"
	"regexp"
)

var serverIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidServerID reports whether id can be used as a server key.
func ValidServerID(id string) bool {
	return serverIDPattern.MatchString(id)
}

// Validate checks the structural invariants of a decoded document.
func (d *Document) Validate() error {
	var problems []string

	if d.SchemaVersion != CurrentSchemaVersion {
		problems = append(problems, fmt.Sprintf("schema_version is %d, want %d", d.SchemaVersion, CurrentSchemaVersion))
	}
	switch d.Preferences.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		problems = append(problems, fmt.Sprintf("preferences.theme %q is not light or dark", d.Preferences.Theme))
	}
	if d.Servers == nil {
		problems = append(problems, "servers section is missing")
	} else {
		for pair := d.Servers.Oldest(); pair != nil; pair = pair.Next() {
			problems = append(problems, validateServer(pair.Key, pair.Value)...)
		}
	}
	if d.Profiles == nil {
		problems = append(problems, "profiles section is missing")
	}
	for id, p := range d.Profiles {
		if id == "" {
			problems = append(problems, "profile with empty id")
		}
		if p.Name == "" {
			problems = append(problems, fmt.Sprintf("profile %q has no name", id))
		}
		if p.Created.IsZero() || p.Modified.IsZero() {
			problems = append(problems, fmt.Sprintf("profile %q is missing timestamps", id))
		}
	}

	if len(problems) > 0 {
		return &InvalidError{Problems: problems}
	}
	return nil
}

func validateServer(id string, s ServerDescriptor) []string {
	var problems []string
	if !ValidServerID(id) {
		problems = append(problems, fmt.Sprintf("server id %q is not valid", id))
	}
	if !s.Type.Valid() {
		problems = append(problems, fmt.Sprintf("server %q has unknown type %q", id, s.Type))
	}
	if s.CommandOrURL == "" {
		problems = append(problems, fmt.Sprintf("server %q has no command_or_url", id))
	}
	return problems
}
