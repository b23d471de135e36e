package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath_DBHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDBHome, dir)
	t.Setenv(EnvXDGDataHome, "/ignored")

	path, err := resolvePath(testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, dbFileName), path)
}

func TestResolvePath_XDGDataHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDBHome, "")
	t.Setenv(EnvXDGDataHome, dir)

	path, err := resolvePath(testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, appDirName, dbFileName), path)

	// Parent directories are created on resolution.
	info, err := os.Stat(filepath.Join(dir, appDirName))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolvePath_HomeFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDBHome, "")
	t.Setenv(EnvXDGDataHome, "")
	t.Setenv("HOME", dir)

	path, err := resolvePath(testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".local", "share", appDirName, dbFileName), path)
}

func TestResolvePath_TildeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvDBHome, filepath.Join("~", "acp-data"))

	path, err := resolvePath(testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "acp-data", dbFileName), path)
}

func TestResolvePath_PathConflict(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	t.Setenv(EnvDBHome, file)

	_, err := resolvePath(testLogger())
	require.ErrorIs(t, err, ErrPathConflict)
}

func TestExpandHome_NonTildeUnchanged(t *testing.T) {
	path, err := expandHome("/absolute/path")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/path", path)
}
