package validation_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func openCache(t *testing.T, path string, now func() time.Time) *validation.Cache {
	t.Helper()
	return validation.OpenCache(path, validation.CacheOptions{Now: now})
}

func TestCache_GetUnknown(t *testing.T) {
	c := openCache(t, filepath.Join(t.TempDir(), "cache.json"), nil)
	e := c.Get("x")
	assert.Equal(t, validation.StatusUnknown, e.Status)
	assert.True(t, e.CheckedAt.IsZero())

	_, f := c.Lookup("x", t0)
	assert.Equal(t, validation.Absent, f)
	assert.True(t, c.IsStale("x", t0))
}

func TestCache_StalenessBoundary(t *testing.T) {
	c := openCache(t, filepath.Join(t.TempDir(), "cache.json"), func() time.Time { return t0 })
	require.NoError(t, c.Put("a", validation.Entry{Status: validation.StatusOK, Message: "fine"}))

	tests := []struct {
		age   time.Duration
		stale bool
	}{
		{0, false},
		{23*time.Hour + 59*time.Minute, false},
		{24*time.Hour - time.Nanosecond, false},
		{24 * time.Hour, true},
		{25 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			assert.Equal(t, tt.stale, c.IsStale("a", t0.Add(tt.age)))
			e, f := c.Lookup("a", t0.Add(tt.age))
			assert.Equal(t, validation.StatusOK, e.Status, "stale entries are still returned")
			if tt.stale {
				assert.Equal(t, validation.Stale, f)
			} else {
				assert.Equal(t, validation.Fresh, f)
			}
		})
	}
}

func TestCache_PutPersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := openCache(t, path, func() time.Time { return t0 })
	require.NoError(t, c.Put("a", validation.Entry{Status: validation.StatusWarning, Message: "slow", LatestVersion: "1.0.0"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw struct {
		SchemaVersion int                       `json:"schema_version"`
		Entries       map[string]map[string]any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, validation.CacheSchemaVersion, raw.SchemaVersion)
	assert.Equal(t, "warning", raw.Entries["a"]["status"])
	assert.Equal(t, "2026-06-01T08:00:00Z", raw.Entries["a"]["checked_at"])
	assert.NotContains(t, raw.Entries["a"], "local_version")

	reopened := openCache(t, path, nil)
	e := reopened.Get("a")
	assert.Equal(t, "a", e.ServerID)
	assert.Equal(t, "1.0.0", e.LatestVersion)
	assert.Equal(t, t0, e.CheckedAt)
	assert.NoFileExists(t, path[:len(path)-len(".json")]+".lock")
}

func TestCache_Invalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := openCache(t, path, func() time.Time { return t0 })
	require.NoError(t, c.Put("a", validation.Entry{Status: validation.StatusOK}))
	require.NoError(t, c.Put("b", validation.Entry{Status: validation.StatusOK}))

	require.NoError(t, c.Invalidate("a"))
	assert.Equal(t, validation.StatusUnknown, c.Get("a").Status)
	assert.Equal(t, validation.StatusOK, c.Get("b").Status)

	require.NoError(t, c.InvalidateAll())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, openCache(t, path, nil).Len())
}

func TestCache_KeepsOtherWritersEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	first := openCache(t, path, nil)
	second := openCache(t, path, nil)

	require.NoError(t, first.Put("a", validation.Entry{Status: validation.StatusOK}))
	require.NoError(t, second.Put("b", validation.Entry{Status: validation.StatusOK}))

	assert.Equal(t, 2, openCache(t, path, nil).Len())
}

func TestCache_IgnoresBadFile(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"garbage.json": "{{",
		"future.json":  `{"schema_version": 9, "entries": {"a": {"status": "ok"}}}`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		c := openCache(t, path, nil)
		assert.Equal(t, 0, c.Len(), name)
		require.NoError(t, c.Put("x", validation.Entry{Status: validation.StatusOK}), name)
		assert.Equal(t, 1, openCache(t, path, nil).Len(), name)
	}
}

func TestCache_ConcurrentPuts(t *testing.T) {
	c := openCache(t, filepath.Join(t.TempDir(), "cache.json"), nil)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Put(string(rune('a'+i)), validation.Entry{Status: validation.StatusOK}))
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}

func TestCache_FailedWriteKeepsPreviousEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := openCache(t, path, func() time.Time { return t0 })
	require.NoError(t, c.Put("a", validation.Entry{Status: validation.StatusOK}))

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	err := c.Put("a", validation.Entry{Status: validation.StatusError})
	require.Error(t, err)
	assert.Equal(t, validation.StatusOK, c.Get("a").Status)

	require.Error(t, c.Put("b", validation.Entry{Status: validation.StatusOK}))
	_, f := c.Lookup("b", t0)
	assert.Equal(t, validation.Absent, f)
	assert.Equal(t, 1, c.Len())
}
