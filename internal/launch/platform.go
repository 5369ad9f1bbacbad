// Package launch turns a set of servers and a project directory into a
// descriptor file and the shell command that starts the claude CLI with it.
package launch

import (
	"regexp"
	"runtime"
	"strings"
)

// Platform is one of Windows, Darwin or Linux. Each supplies the shell
// preference order, the variable syntax and the synonym table.
type Platform struct {
	name     string
	shells   []ShellKind
	fallback ShellKind
	syntax   syntax
	foldCase bool
	synonyms map[string]synonym
}

// Name returns the GOOS-style platform name.
func (p Platform) Name() string { return p.name }

// ShellOrder returns the shells tried by DetectShell, most preferred first.
func (p Platform) ShellOrder() []ShellKind {
	return append([]ShellKind(nil), p.shells...)
}

// Fallback returns the shell assumed when none is found.
func (p Platform) Fallback() ShellKind { return p.fallback }

// Posix reports whether the platform uses $VAR syntax.
func (p Platform) Posix() bool { return !p.foldCase }

type synonym int

const (
	synWorkingDir synonym = iota + 1
	synHome
	synTemp
)

var sharedSynonyms = map[string]synonym{
	"CD":          synWorkingDir,
	"PWD":         synWorkingDir,
	"USERPROFILE": synHome,
	"HOME":        synHome,
	"TEMP":        synTemp,
	"TMP":         synTemp,
	"TMPDIR":      synTemp,
}

var (
	Windows = Platform{
		name:     "windows",
		shells:   []ShellKind{WindowsTerminal, PowerShell7, PowerShell5},
		fallback: Cmd,
		syntax:   percentSyntax{},
		foldCase: true,
		synonyms: sharedSynonyms,
	}
	Darwin = Platform{
		name:     "darwin",
		shells:   []ShellKind{Zsh, Bash, Sh},
		fallback: Sh,
		syntax:   dollarSyntax{},
		synonyms: sharedSynonyms,
	}
	Linux = Platform{
		name:     "linux",
		shells:   []ShellKind{Bash, Zsh, Sh},
		fallback: Sh,
		syntax:   dollarSyntax{},
		synonyms: sharedSynonyms,
	}
)

// ForGOOS maps a GOOS value to its platform. Unknown systems are treated as
// Linux.
func ForGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	default:
		return Linux
	}
}

// Current returns the platform this binary runs on.
func Current() Platform {
	return ForGOOS(runtime.GOOS)
}

func (p Platform) synonym(name string) (synonym, bool) {
	if p.foldCase {
		name = strings.ToUpper(name)
	}
	s, ok := p.synonyms[name]
	return s, ok
}

// syntax finds variable references and substitutes them.
type syntax interface {
	expand(text string, lookup func(name string) (string, bool)) (string, []string)
}

var (
	percentRef = regexp.MustCompile(`%([^%\s]+)%`)
	dollarRef  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// percentSyntax is Windows %VAR%.
type percentSyntax struct{}

func (percentSyntax) expand(text string, lookup func(string) (string, bool)) (string, []string) {
	var missing []string
	out := percentRef.ReplaceAllStringFunc(text, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if v, ok := lookup(name); ok {
			return v
		}
		missing = appendUnique(missing, name)
		return ref
	})
	return out, missing
}

// dollarSyntax is POSIX $VAR and ${VAR}.
type dollarSyntax struct{}

func (dollarSyntax) expand(text string, lookup func(string) (string, bool)) (string, []string) {
	var missing []string
	out := dollarRef.ReplaceAllStringFunc(text, func(ref string) string {
		m := dollarRef.FindStringSubmatch(ref)
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if v, ok := lookup(name); ok {
			return v
		}
		missing = appendUnique(missing, name)
		return ref
	})
	return out, missing
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
