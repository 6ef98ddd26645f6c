package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveViaMCPConfig(t *testing.T) {
	root := t.TempDir()
	mcpDir := filepath.Join(root, "packages", "mcp", "config")
	require.NoError(t, os.MkdirAll(mcpDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mcpDir, "mcp-server-config.json"), []byte("{}"), 0o644))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := Resolve(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveViaPromptsAndPackageJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "prompts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))

	got, err := Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveNotFound(t *testing.T) {
	root := t.TempDir()
	_, err := Resolve(root)
	assert.ErrorIs(t, err, ErrNotFound)
}
