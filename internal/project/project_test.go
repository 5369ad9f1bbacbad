package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ScottN-PV/cc-launcher/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	for _, marker := range project.Markers {
		t.Run(marker, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(root, marker), 0o755))
			nested := filepath.Join(root, "src", "pkg")
			require.NoError(t, os.MkdirAll(nested, 0o755))

			found, err := project.FindRoot(nested)
			require.NoError(t, err)
			assert.Equal(t, root, found)
		})
	}
}

func TestFindRoot_NearestWins(t *testing.T) {
	outer := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outer, ".git"), 0o755))
	inner := filepath.Join(outer, "services", "api")
	require.NoError(t, os.MkdirAll(inner, 0o755))
	require.NoError(t, os.WriteFile(project.MCPConfigFile(inner), []byte(`{"mcpServers":{}}`), 0o644))

	found, err := project.FindRoot(filepath.Join(inner))
	require.NoError(t, err)
	assert.Equal(t, inner, found)
}

func TestFindRoot_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := project.FindRoot(dir)
	if err == nil {
		t.Skip("a marker exists above the temp directory")
	}
	assert.ErrorIs(t, err, project.ErrNoProjectRoot)
	assert.Equal(t, dir, project.RootOrSelf(dir))
}
