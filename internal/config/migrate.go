package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// upgrades maps a schema version to the function that lifts a raw document
// from that version to the next one.
var upgrades = map[int]func([]byte) ([]byte, error){
	1: upgradeV1,
}

// Migrate returns data rewritten to CurrentSchemaVersion. Documents without
// schema_version but with the legacy string "version" field are schema 1.
func Migrate(data []byte) ([]byte, error) {
	var probe struct {
		SchemaVersion *int            `json:"schema_version"`
		Version       json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &InvalidError{Problems: []string{fmt.Sprintf("parsing config: %v", err)}}
	}

	var version int
	switch {
	case probe.SchemaVersion != nil:
		version = *probe.SchemaVersion
	case len(probe.Version) > 0:
		version = 1
	default:
		return nil, &InvalidError{Problems: []string{"schema_version is missing"}}
	}
	if version < 1 || version > CurrentSchemaVersion {
		return nil, &VersionError{Found: version, Supported: CurrentSchemaVersion}
	}

	for version < CurrentSchemaVersion {
		upgrade, ok := upgrades[version]
		if !ok {
			return nil, &VersionError{Found: version, Supported: CurrentSchemaVersion}
		}
		var err error
		if data, err = upgrade(data); err != nil {
			return nil, err
		}
		version++
	}
	return data, nil
}

// ParseLegacyProfiles decodes a schema-1 profile collection keyed by id, the
// layout of per-project profile files.
func ParseLegacyProfiles(data []byte) (map[string]Profile, error) {
	var raw map[string]legacyProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidError{Problems: []string{fmt.Sprintf("parsing legacy profiles: %v", err)}}
	}
	out := make(map[string]Profile, len(raw))
	for id, lp := range raw {
		p, err := lp.upgrade(id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

type legacyDocument struct {
	Preferences     legacyPreferences                   `json:"preferences"`
	Servers         map[string]legacyServer             `json:"servers"`
	Profiles        map[string]legacyProfile            `json:"profiles"`
	ProjectProfiles map[string]map[string]legacyProfile `json:"project_profiles"`
}

type legacyPreferences struct {
	Theme           string   `json:"theme"`
	LastPath        string   `json:"last_path"`
	RecentProjects  []string `json:"recent_projects"`
	LastProfile     string   `json:"last_profile"`
	CloseToTray     *bool    `json:"close_to_tray"`
	SkipValidation  bool     `json:"skip_validation"`
	ForcePowerShell bool     `json:"force_powershell"`
}

type legacyServer struct {
	Type        string            `json:"type"`
	Enabled     *bool             `json:"enabled"`
	Order       int               `json:"order"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
}

type legacyProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Servers  []string `json:"servers"`
	Created  string   `json:"created"`
	Modified string   `json:"modified"`
	LastUsed *string  `json:"last_used"`
}

// legacyTimeLayouts covers Python isoformat() output with and without
// fractional seconds or an offset.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseLegacyTime(s string) (time.Time, error) {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// upgradeV1 converts the original "version": "1.0.0" layout.
func upgradeV1(data []byte) ([]byte, error) {
	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, &InvalidError{Problems: []string{fmt.Sprintf("parsing v1 config: %v", err)}}
	}

	doc := &Document{
		SchemaVersion: CurrentSchemaVersion,
		Preferences:   DefaultPreferences(),
		Servers:       NewServerMap(),
		Profiles:      map[string]Profile{},
	}

	ids := make([]string, 0, len(legacy.Servers))
	for id := range legacy.Servers {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(cmp.Compare(legacy.Servers[a].Order, legacy.Servers[b].Order), cmp.Compare(a, b))
	})
	for _, id := range ids {
		doc.Servers.Set(id, legacy.Servers[id].upgrade(id))
	}

	for id, lp := range legacy.Profiles {
		p, err := lp.upgrade(id)
		if err != nil {
			return nil, err
		}
		doc.Profiles[id] = p
	}

	// Project-scoped profiles are promoted into the global set.
	for _, project := range slices.Sorted(maps.Keys(legacy.ProjectProfiles)) {
		collection := legacy.ProjectProfiles[project]
		for _, id := range slices.Sorted(maps.Keys(collection)) {
			p, err := collection[id].upgrade(id)
			if err != nil {
				return nil, err
			}
			doc.PromoteProfile(p)
		}
	}

	prefs := legacy.Preferences
	if prefs.Theme == string(ThemeLight) {
		doc.Preferences.Theme = ThemeLight
	}
	doc.Preferences.LastProjectPath = prefs.LastPath
	if prefs.RecentProjects != nil {
		doc.Preferences.RecentProjects = prefs.RecentProjects
	}
	if len(doc.Preferences.RecentProjects) > MaxRecentProjects {
		doc.Preferences.RecentProjects = doc.Preferences.RecentProjects[:MaxRecentProjects]
	}
	if _, ok := doc.Profiles[prefs.LastProfile]; ok {
		doc.Preferences.LastProfile = prefs.LastProfile
	}
	if prefs.CloseToTray != nil {
		doc.Preferences.TrayEnabled = *prefs.CloseToTray
	}
	doc.Preferences.SkipValidation = prefs.SkipValidation
	doc.Preferences.ForcePowerShell = prefs.ForcePowerShell

	return Marshal(doc)
}

func (ls legacyServer) upgrade(id string) ServerDescriptor {
	s := ServerDescriptor{
		ID:          id,
		Type:        Transport(ls.Type),
		Args:        ls.Args,
		Env:         ls.Env,
		Headers:     ls.Headers,
		Description: ls.Description,
		Category:    ls.Category,
		Enabled:     ls.Enabled == nil || *ls.Enabled,
	}
	if s.Type == "" || (s.Type == TransportStdio && ls.Command == "" && ls.URL != "") {
		if ls.URL != "" {
			s.Type = TransportHTTP
		} else {
			s.Type = TransportStdio
		}
	}
	if s.Type == TransportHTTP {
		s.CommandOrURL = ls.URL
	} else {
		s.CommandOrURL = ls.Command
	}
	s.normalize()
	return s
}

func (lp legacyProfile) upgrade(id string) (Profile, error) {
	created, err := parseLegacyTime(lp.Created)
	if err != nil {
		return Profile{}, &InvalidError{Problems: []string{fmt.Sprintf("profile %q created: %v", id, err)}}
	}
	modified, err := parseLegacyTime(lp.Modified)
	if err != nil {
		return Profile{}, &InvalidError{Problems: []string{fmt.Sprintf("profile %q modified: %v", id, err)}}
	}
	p := Profile{
		ID:               id,
		Name:             lp.Name,
		EnabledServerIDs: slices.Clone(lp.Servers),
		Created:          created,
		Modified:         modified,
	}
	if p.Name == "" {
		p.Name = id
	}
	if p.EnabledServerIDs == nil {
		p.EnabledServerIDs = []string{}
	}
	if lp.LastUsed != nil {
		// An unreadable last_used is dropped rather than failing the load.
		if t, err := parseLegacyTime(*lp.LastUsed); err == nil {
			p.LastUsed = &t
		}
	}
	return p, nil
}
