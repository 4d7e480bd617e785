package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileFallsBackToEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORAGE_TYPE", "memory")

	v, err := Load(dir, "config")
	require.NoError(t, err)
	assert.Equal(t, "memory", v.GetString("storage.type"))
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "thumbnail:\n  width: 120\n  height: 90\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thumb.yaml"), []byte(yaml), 0o644))

	v, err := Load(dir, "thumb")
	require.NoError(t, err)
	assert.Equal(t, 120, v.GetInt("thumbnail.width"))
	assert.Equal(t, 90, v.GetInt("thumbnail.height"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("a: [b"), 0o644))

	_, err := Load(dir, "broken")
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("THUMBNAIL_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("THUMBNAIL_TEST_VALUE", "default"))
	assert.Equal(t, "default", GetEnv("THUMBNAIL_TEST_UNSET", "default"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("THUMB_DOTENV_NEW=from-file\nTHUMB_DOTENV_SET=from-file\n"), 0o644))

	// Registers cleanup, then leaves the variable unset for the loader.
	t.Setenv("THUMB_DOTENV_NEW", "")
	require.NoError(t, os.Unsetenv("THUMB_DOTENV_NEW"))
	t.Setenv("THUMB_DOTENV_SET", "from-env")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("THUMB_DOTENV_NEW"))
	assert.Equal(t, "from-env", os.Getenv("THUMB_DOTENV_SET"))
}
