package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CurrentSchemaVersion is the schema written by this build.
const CurrentSchemaVersion = 2

// MaxRecentProjects bounds Preferences.RecentProjects.
const MaxRecentProjects = 10

// DefaultCategory is assigned to servers saved without a category.
const DefaultCategory = "general"

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Transport is how the launched CLI reaches a server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Valid reports whether t is a known transport.
func (t Transport) Valid() bool {
	return t == TransportStdio || t == TransportHTTP
}

// Document represents ~/.claude/cc-launch.json.
type Document struct {
	SchemaVersion int                `json:"schema_version"`
	Preferences   Preferences        `json:"preferences"`
	Servers       *ServerMap         `json:"servers"`
	Profiles      map[string]Profile `json:"profiles"`
}

// ServerMap keeps servers in insertion order for display.
type ServerMap = orderedmap.OrderedMap[string, ServerDescriptor]

// NewServerMap returns an empty ServerMap.
func NewServerMap() *ServerMap {
	return orderedmap.New[string, ServerDescriptor]()
}

// Preferences holds user preferences.
type Preferences struct {
	Theme           Theme    `json:"theme"`
	LastProjectPath string   `json:"last_project_path"`
	LastProfile     string   `json:"last_profile"`
	RecentProjects  []string `json:"recent_projects"`
	TrayEnabled     bool     `json:"tray_enabled"`
	// SkipValidation is offline mode: only cached validation results are shown.
	SkipValidation bool `json:"skip_validation"`
	// ForcePowerShell skips Windows Terminal during shell detection.
	ForcePowerShell bool `json:"force_powershell"`
}

// MarshalJSON writes empty path/profile preferences as null.
func (p Preferences) MarshalJSON() ([]byte, error) {
	type alias Preferences
	return json.Marshal(struct {
		alias
		LastProjectPath *string `json:"last_project_path"`
		LastProfile     *string `json:"last_profile"`
	}{
		alias:           alias(p),
		LastProjectPath: nullable(p.LastProjectPath),
		LastProfile:     nullable(p.LastProfile),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ServerDescriptor is one MCP server definition.
type ServerDescriptor struct {
	ID           string            `json:"-" yaml:"id"`
	Type         Transport         `json:"type" yaml:"type"`
	CommandOrURL string            `json:"command_or_url" yaml:"command_or_url"`
	Args         []string          `json:"args" yaml:"args,omitempty"`
	Env          map[string]string `json:"env" yaml:"env,omitempty"`
	Headers      map[string]string `json:"headers" yaml:"headers,omitempty"`
	Description  string            `json:"description" yaml:"description,omitempty"`
	Category     string            `json:"category" yaml:"category,omitempty"`
	Enabled      bool              `json:"enabled" yaml:"enabled"`
}

// Clone returns a deep copy of s.
func (s ServerDescriptor) Clone() ServerDescriptor {
	out := s
	out.Args = slices.Clone(s.Args)
	out.Env = cloneMap(s.Env)
	out.Headers = cloneMap(s.Headers)
	out.normalize()
	return out
}

// normalize replaces nil collections so the JSON shape is stable.
func (s *ServerDescriptor) normalize() {
	if s.Args == nil {
		s.Args = []string{}
	}
	if s.Env == nil {
		s.Env = map[string]string{}
	}
	if s.Headers == nil {
		s.Headers = map[string]string{}
	}
	if s.Category == "" {
		s.Category = DefaultCategory
	}
}

// Profile is a named subset of servers.
type Profile struct {
	ID               string     `json:"-"`
	Name             string     `json:"name"`
	EnabledServerIDs []string   `json:"enabled_server_ids"`
	Created          time.Time  `json:"created"`
	Modified         time.Time  `json:"modified"`
	LastUsed         *time.Time `json:"last_used"`
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	out.EnabledServerIDs = slices.Clone(p.EnabledServerIDs)
	if out.EnabledServerIDs == nil {
		out.EnabledServerIDs = []string{}
	}
	if p.LastUsed != nil {
		t := *p.LastUsed
		out.LastUsed = &t
	}
	return out
}

// HasServer reports whether id is in the profile's enabled set.
func (p Profile) HasServer(id string) bool {
	return slices.Contains(p.EnabledServerIDs, id)
}

// Default returns a brand-new document seeded with the template catalog.
func Default() *Document {
	doc := &Document{
		SchemaVersion: CurrentSchemaVersion,
		Preferences:   DefaultPreferences(),
		Servers:       NewServerMap(),
		Profiles:      map[string]Profile{},
	}
	for _, tmpl := range Templates() {
		doc.Servers.Set(tmpl.ID, tmpl)
	}
	return doc
}

// DefaultPreferences returns preferences with default values.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:          ThemeDark,
		RecentProjects: []string{},
		TrayEnabled:    true,
	}
}

// Parse decodes a document, upgrading older schemas and validating the
// result. It returns *VersionError for unsupported schemas and *InvalidError
// for anything structurally wrong.
func Parse(data []byte) (*Document, error) {
	upgraded, err := Migrate(data)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(upgraded, &doc); err != nil {
		return nil, &InvalidError{Problems: []string{fmt.Sprintf("decoding document: %v", err)}}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.normalize()
	return &doc, nil
}

// Marshal serializes a document as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	doc.normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return append(data, '\n'), nil
}

// normalize fills ids from map keys and replaces nil collections.
func (d *Document) normalize() {
	if d.Servers == nil {
		d.Servers = NewServerMap()
	}
	if d.Profiles == nil {
		d.Profiles = map[string]Profile{}
	}
	if d.Preferences.RecentProjects == nil {
		d.Preferences.RecentProjects = []string{}
	}
	if d.Preferences.Theme == "" {
		d.Preferences.Theme = ThemeDark
	}
	for pair := d.Servers.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		s.ID = pair.Key
		s.normalize()
		pair.Value = s
	}
	for id, p := range d.Profiles {
		p.ID = id
		if p.EnabledServerIDs == nil {
			p.EnabledServerIDs = []string{}
		}
		d.Profiles[id] = p
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		SchemaVersion: d.SchemaVersion,
		Preferences:   d.Preferences,
		Servers:       NewServerMap(),
		Profiles:      make(map[string]Profile, len(d.Profiles)),
	}
	out.Preferences.RecentProjects = slices.Clone(d.Preferences.RecentProjects)
	if d.Servers != nil {
		for pair := d.Servers.Oldest(); pair != nil; pair = pair.Next() {
			out.Servers.Set(pair.Key, pair.Value.Clone())
		}
	}
	for id, p := range d.Profiles {
		out.Profiles[id] = p.Clone()
	}
	out.normalize()
	return out
}

// Server returns a copy of the server with the given id.
func (d *Document) Server(id string) (ServerDescriptor, bool) {
	s, ok := d.Servers.Get(id)
	if !ok {
		return ServerDescriptor{}, false
	}
	return s.Clone(), true
}

// ServerList returns copies of all servers in insertion order.
func (d *Document) ServerList() []ServerDescriptor {
	out := make([]ServerDescriptor, 0, d.Servers.Len())
	for pair := d.Servers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.Clone())
	}
	return out
}

// SetServer inserts or replaces a server. Replacing keeps its position.
func (d *Document) SetServer(s ServerDescriptor) {
	s = s.Clone()
	d.Servers.Set(s.ID, s)
}

// DeleteServer removes a server and drops it from every profile.
func (d *Document) DeleteServer(id string) bool {
	if _, ok := d.Servers.Delete(id); !ok {
		return false
	}
	for pid, p := range d.Profiles {
		p.EnabledServerIDs = slices.DeleteFunc(p.EnabledServerIDs, func(s string) bool { return s == id })
		d.Profiles[pid] = p
	}
	return true
}

// PruneDanglingServers removes profile members that no longer exist in
// Servers. It returns the pruned ids keyed by profile id.
func (d *Document) PruneDanglingServers() map[string][]string {
	pruned := map[string][]string{}
	for pid, p := range d.Profiles {
		kept := make([]string, 0, len(p.EnabledServerIDs))
		for _, sid := range p.EnabledServerIDs {
			if _, ok := d.Servers.Get(sid); ok {
				kept = append(kept, sid)
			} else {
				pruned[pid] = append(pruned[pid], sid)
			}
		}
		p.EnabledServerIDs = kept
		d.Profiles[pid] = p
	}
	return pruned
}

// PromoteProfile adds p to the profiles under its id, suffixed with -1, -2...
// when taken. Servers missing from the catalog are dropped. It returns the
// id used.
func (d *Document) PromoteProfile(p Profile) string {
	p = p.Clone()
	p.EnabledServerIDs = slices.DeleteFunc(p.EnabledServerIDs, func(sid string) bool {
		_, ok := d.Servers.Get(sid)
		return !ok
	})
	base := p.ID
	if base == "" {
		base = "profile"
	}
	id := base
	for n := 1; ; n++ {
		if _, taken := d.Profiles[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
	p.ID = id
	d.Profiles[id] = p
	return id
}

// ProfileIDs returns profile ids in sorted order.
func (d *Document) ProfileIDs() []string {
	ids := make([]string, 0, len(d.Profiles))
	for id := range d.Profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
