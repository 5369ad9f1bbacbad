package profiles

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

// Location of profiles that older releases kept inside a project.
const (
	LegacyProjectDir  = ".cc-launcher"
	LegacyProfileFile = "profiles.json"
)

// LegacyProjectFile returns the per-project profile file under projectDir.
func LegacyProjectFile(projectDir string) string {
	return filepath.Join(projectDir, LegacyProjectDir, LegacyProfileFile)
}

// ImportLegacyProject moves the profiles in projectDir's legacy profile file
// into the global set and removes the file once they are saved. Profiles
// keep their id and name unless taken; servers missing from the catalog are
// dropped. It returns how many profiles were imported.
func (r *Registry) ImportLegacyProject(projectDir string) (int, error) {
	if projectDir == "" {
		return 0, nil
	}
	path := LegacyProjectFile(projectDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	legacy, err := config.ParseLegacyProfiles(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	var imported []string
	if len(legacy) > 0 {
		_, err = r.store.Update(func(doc *config.Document) error {
			imported = imported[:0]
			for _, id := range slices.Sorted(maps.Keys(legacy)) {
				p := legacy[id]
				p.Name = freeName(doc, p.Name, filepath.Base(projectDir))
				imported = append(imported, doc.PromoteProfile(p))
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("removing legacy profile file", "path", path, "error", err)
	}
	// Fails harmlessly when the directory holds anything else.
	_ = os.Remove(filepath.Dir(path))

	r.logger.Info("imported legacy project profiles", "project", projectDir, "profiles", imported)
	return len(imported), nil
}

// freeName returns name, or name qualified by project when another profile
// already uses it.
func freeName(doc *config.Document, name, project string) string {
	taken := func(n string) bool {
		for _, p := range doc.Profiles {
			if strings.EqualFold(p.Name, n) {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	candidate := fmt.Sprintf("%s (%s)", name, project)
	for n := 2; taken(candidate); n++ {
		candidate = fmt.Sprintf("%s (%s %d)", name, project, n)
	}
	return candidate
}
