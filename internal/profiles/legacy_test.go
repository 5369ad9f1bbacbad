package profiles_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ScottN-PV/cc-launcher/internal/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyProjectProfiles = `{
  "dev": {"id": "dev", "name": "Dev", "servers": ["filesystem", "ghost"],
          "created": "2025-03-01T10:00:00", "modified": "2025-03-02T10:00:00",
          "scope": "project", "project_path": "/old/place"},
  "docs": {"id": "docs", "name": "Docs", "servers": ["ref"],
           "created": "2025-03-01T10:00:00", "modified": "2025-03-01T10:00:00"}
}`

func writeLegacy(t *testing.T, project, content string) string {
	t.Helper()
	path := profiles.LegacyProjectFile(project)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportLegacyProject(t *testing.T) {
	reg, st, _ := setup(t)
	existing, err := reg.Create("dev", []string{"ref"})
	require.NoError(t, err)

	project := filepath.Join(t.TempDir(), "webapp")
	path := writeLegacy(t, project, legacyProjectProfiles)

	n, err := reg.ImportLegacyProject(project)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, err := st.Load()
	require.NoError(t, err)
	dev := doc.Profiles["dev"]
	assert.Equal(t, "Dev (webapp)", dev.Name, "name clash is qualified by the project")
	assert.Equal(t, []string{"filesystem"}, dev.EnabledServerIDs, "unknown servers are dropped")
	assert.Equal(t, "Docs", doc.Profiles["docs"].Name)
	assert.Equal(t, "dev", doc.Profiles[existing.ID].Name)

	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Dir(path), "empty legacy directory is removed")

	n, err = reg.ImportLegacyProject(project)
	require.NoError(t, err)
	assert.Zero(t, n, "second import finds nothing")
}

func TestImportLegacyProject_KeepsOtherFiles(t *testing.T) {
	reg, _, _ := setup(t)
	project := t.TempDir()
	path := writeLegacy(t, project, `{}`)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0o644))

	n, err := reg.ImportLegacyProject(project)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, path)
	assert.DirExists(t, filepath.Dir(path))
}

func TestImportLegacyProject_BadFileIsKept(t *testing.T) {
	reg, st, _ := setup(t)
	project := t.TempDir()
	path := writeLegacy(t, project, `not json`)

	_, err := reg.ImportLegacyProject(project)
	require.Error(t, err)
	assert.FileExists(t, path)

	doc, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Profiles)

	n, err := reg.ImportLegacyProject(filepath.Join(project, "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
