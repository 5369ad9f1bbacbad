package commands

import (
	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/validation"
)

// ServerStatus pairs a server with its cached validation state.
type ServerStatus struct {
	Server    config.ServerDescriptor
	Entry     validation.Entry
	Freshness validation.Freshness
}

type StatusResult struct {
	ConfigPath     string
	Servers        []ServerStatus
	Enabled        int
	Profiles       int
	Active         *config.Profile
	LastProject    string
	RecentProjects []string
	// Problems lists servers whose cached status is warning or error.
	Problems []ServerStatus
	Offline  bool
}

// Status summarizes the config document and the validation cache without
// running any checks.
func Status(a *App) (*StatusResult, error) {
	doc, err := a.Store.Load()
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		ConfigPath:     a.Store.Path(),
		Profiles:       len(doc.Profiles),
		LastProject:    doc.Preferences.LastProjectPath,
		RecentProjects: doc.Preferences.RecentProjects,
		Offline:        doc.Preferences.SkipValidation || a.Settings.Offline,
	}
	if p, ok := doc.Profiles[doc.Preferences.LastProfile]; ok {
		res.Active = &p
	}

	now := a.Cache.Now()
	for _, s := range doc.ServerList() {
		entry, freshness := a.Cache.Lookup(s.ID, now)
		st := ServerStatus{Server: s, Entry: entry, Freshness: freshness}
		res.Servers = append(res.Servers, st)
		if s.Enabled {
			res.Enabled++
		}
		if freshness != validation.Absent && (entry.Status == validation.StatusWarning || entry.Status == validation.StatusError) {
			res.Problems = append(res.Problems, st)
		}
	}
	return res, nil
}
