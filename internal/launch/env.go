package launch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Resolver looks variable names up for ExpandEnvironment. The order is the
// platform synonym table, the project's .env file, then the process
// environment.
type Resolver struct {
	WorkingDir string
	Home       string
	TempDir    string
	// DotEnv holds variables from <WorkingDir>/.env.
	DotEnv map[string]string
	// LookupEnv reads the process environment.
	LookupEnv func(string) (string, bool)
}

// NewResolver builds a Resolver for workingDir, reading its .env file if
// present. A malformed .env file is returned as an error alongside a
// resolver that ignores it.
func NewResolver(workingDir string) (*Resolver, error) {
	home, _ := os.UserHomeDir()
	r := &Resolver{
		WorkingDir: workingDir,
		Home:       home,
		TempDir:    os.TempDir(),
		DotEnv:     map[string]string{},
		LookupEnv:  os.LookupEnv,
	}
	if workingDir == "" {
		return r, nil
	}
	vars, err := godotenv.Read(filepath.Join(workingDir, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return r, err
	}
	r.DotEnv = vars
	return r, nil
}

func (r *Resolver) lookup(p Platform, name string) (string, bool) {
	if syn, ok := p.synonym(name); ok {
		switch syn {
		case synWorkingDir:
			return r.WorkingDir, r.WorkingDir != ""
		case synHome:
			return r.Home, r.Home != ""
		case synTemp:
			return r.TempDir, r.TempDir != ""
		}
	}

	if v, ok := r.DotEnv[name]; ok {
		return v, true
	}
	if p.foldCase {
		for k, v := range r.DotEnv {
			if strings.EqualFold(k, name) {
				return v, true
			}
		}
	}

	if r.LookupEnv == nil {
		return "", false
	}
	if v, ok := r.LookupEnv(name); ok {
		return v, true
	}
	if p.foldCase {
		return r.LookupEnv(strings.ToUpper(name))
	}
	return "", false
}

// ExpandEnvironment substitutes variable references in text using the
// platform's syntax: %VAR% on Windows (case-insensitive), $VAR and ${VAR}
// elsewhere. Unresolved references are left as written and their names
// returned.
func ExpandEnvironment(text string, p Platform, r *Resolver) (string, []string) {
	if r == nil {
		r = &Resolver{LookupEnv: os.LookupEnv, TempDir: os.TempDir()}
	}
	return p.syntax.expand(text, func(name string) (string, bool) {
		return r.lookup(p, name)
	})
}
