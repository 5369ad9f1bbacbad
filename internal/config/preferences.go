package config

import "path/filepath"

// NormalizeProjectPath returns an absolute, cleaned form of p, or "" if p is empty.
func NormalizeProjectPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// RecordProject makes path the last project and moves it to the front of
// the recent list, which stays bounded to MaxRecentProjects.
func (p *Preferences) RecordProject(path string) {
	path = NormalizeProjectPath(path)
	if path == "" {
		return
	}
	p.LastProjectPath = path

	recent := make([]string, 0, MaxRecentProjects)
	recent = append(recent, path)
	for _, r := range p.RecentProjects {
		if len(recent) == MaxRecentProjects {
			break
		}
		if NormalizeProjectPath(r) == path {
			continue
		}
		recent = append(recent, r)
	}
	p.RecentProjects = recent
}
