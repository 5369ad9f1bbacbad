package config_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	doc := config.Default()
	assert.Equal(t, config.CurrentSchemaVersion, doc.SchemaVersion)
	assert.Equal(t, config.ThemeDark, doc.Preferences.Theme)
	assert.Empty(t, doc.Profiles)
	assert.Equal(t, len(config.Templates()), doc.Servers.Len())
	require.NoError(t, doc.Validate())

	ids := make([]string, 0)
	for _, s := range doc.ServerList() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, "filesystem", ids[0], "template order is preserved")
	assert.Equal(t, "motion", ids[len(ids)-1])
}

func TestParseMarshalRoundTrip(t *testing.T) {
	doc := config.Default()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc.Profiles["p1"] = config.Profile{
		ID:               "p1",
		Name:             "dev",
		EnabledServerIDs: []string{"filesystem"},
		Created:          now,
		Modified:         now,
		LastUsed:         &now,
	}
	doc.SetServer(config.ServerDescriptor{
		ID:           "api",
		Type:         config.TransportHTTP,
		CommandOrURL: "https://example.com/mcp",
		Headers:      map[string]string{"Authorization": "Bearer x"},
		Enabled:      true,
	})

	data, err := config.Marshal(doc)
	require.NoError(t, err)

	parsed, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Preferences, parsed.Preferences)
	assert.Equal(t, doc.ServerList(), parsed.ServerList())
	assert.Equal(t, doc.Profiles, parsed.Profiles)

	again, err := config.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestMarshalShape(t *testing.T) {
	doc := config.Default()
	data, err := config.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, config.CurrentSchemaVersion, raw["schema_version"])

	prefs := raw["preferences"].(map[string]any)
	assert.Nil(t, prefs["last_project_path"])
	assert.Nil(t, prefs["last_profile"])
	assert.Equal(t, []any{}, prefs["recent_projects"])

	fs := raw["servers"].(map[string]any)["filesystem"].(map[string]any)
	assert.Equal(t, "stdio", fs["type"])
	assert.Equal(t, "npx", fs["command_or_url"])
	assert.NotContains(t, fs, "id")
}

func TestParseErrors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		_, err := config.Parse([]byte(`{{{`))
		var invalid *config.InvalidError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := config.Parse([]byte(`{"preferences":{}}`))
		var invalid *config.InvalidError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("newer version", func(t *testing.T) {
		_, err := config.Parse([]byte(`{"schema_version": 99}`))
		var verr *config.VersionError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, 99, verr.Found)
	})

	t.Run("missing sections", func(t *testing.T) {
		_, err := config.Parse([]byte(`{"schema_version": 2, "preferences": {}}`))
		var invalid *config.InvalidError
		require.True(t, errors.As(err, &invalid))
		assert.Contains(t, invalid.Error(), "servers section is missing")
	})

	t.Run("bad server", func(t *testing.T) {
		_, err := config.Parse([]byte(`{"schema_version": 2, "preferences": {}, "profiles": {},
			"servers": {"x": {"type": "grpc", "command_or_url": ""}}}`))
		var invalid *config.InvalidError
		require.True(t, errors.As(err, &invalid))
		assert.Len(t, invalid.Problems, 2)
	})

	t.Run("servers not an object", func(t *testing.T) {
		_, err := config.Parse([]byte(`{"schema_version": 2, "preferences": {}, "profiles": {}, "servers": []}`))
		assert.Error(t, err)
	})
}

func TestTemplatesAreIndependentCopies(t *testing.T) {
	first := config.Templates()
	first[0].Args[0] = "mutated"
	first[0].Env["X"] = "y"
	first[0].Description = "changed"

	second := config.Templates()
	assert.Equal(t, "-y", second[0].Args[0])
	assert.Empty(t, second[0].Env)
	assert.NotEqual(t, "changed", second[0].Description)

	tmpl, ok := config.Template("supabase")
	require.True(t, ok)
	assert.Equal(t, "database", tmpl.Category)
	_, ok = config.Template("nope")
	assert.False(t, ok)
}

func TestDeleteServerCascades(t *testing.T) {
	doc := config.Default()
	now := time.Now().UTC()
	doc.Profiles["p"] = config.Profile{ID: "p", Name: "p", EnabledServerIDs: []string{"ref", "filesystem"}, Created: now, Modified: now}

	assert.True(t, doc.DeleteServer("ref"))
	assert.False(t, doc.DeleteServer("ref"))
	_, ok := doc.Server("ref")
	assert.False(t, ok)
	assert.Equal(t, []string{"filesystem"}, doc.Profiles["p"].EnabledServerIDs)
}

func TestPruneDanglingServers(t *testing.T) {
	doc := config.Default()
	now := time.Now().UTC()
	doc.Profiles["p"] = config.Profile{ID: "p", Name: "p", EnabledServerIDs: []string{"ghost", "ref"}, Created: now, Modified: now}

	pruned := doc.PruneDanglingServers()
	assert.Equal(t, map[string][]string{"p": {"ghost"}}, pruned)
	assert.Equal(t, []string{"ref"}, doc.Profiles["p"].EnabledServerIDs)
}

func TestCloneIsDeep(t *testing.T) {
	doc := config.Default()
	now := time.Now().UTC()
	doc.Profiles["p"] = config.Profile{ID: "p", Name: "p", EnabledServerIDs: []string{"ref"}, Created: now, Modified: now, LastUsed: &now}

	clone := doc.Clone()
	fs, _ := clone.Servers.Get("filesystem")
	fs.Args[0] = "changed"
	p := clone.Profiles["p"]
	p.EnabledServerIDs[0] = "changed"
	*p.LastUsed = now.Add(time.Hour)

	orig, _ := doc.Server("filesystem")
	assert.Equal(t, "-y", orig.Args[0])
	assert.Equal(t, "ref", doc.Profiles["p"].EnabledServerIDs[0])
	assert.Equal(t, now, *doc.Profiles["p"].LastUsed)
}

func TestSetServerKeepsPosition(t *testing.T) {
	doc := config.Default()
	s, ok := doc.Server("ref")
	require.True(t, ok)
	s.Enabled = true
	doc.SetServer(s)

	list := doc.ServerList()
	assert.Equal(t, "ref", list[1].ID)
	assert.True(t, list[1].Enabled)
}

func TestRecordProject(t *testing.T) {
	prefs := config.DefaultPreferences()
	base := t.TempDir()

	for i := range config.MaxRecentProjects + 3 {
		prefs.RecordProject(base + "/p" + string(rune('a'+i)))
	}
	assert.Len(t, prefs.RecentProjects, config.MaxRecentProjects)
	assert.Equal(t, prefs.LastProjectPath, prefs.RecentProjects[0])

	prefs.RecordProject(prefs.RecentProjects[3])
	assert.Equal(t, prefs.LastProjectPath, prefs.RecentProjects[0])
	assert.Len(t, prefs.RecentProjects, config.MaxRecentProjects)

	seen := map[string]bool{}
	for _, p := range prefs.RecentProjects {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
	}
}
