package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTOML(t *testing.T) {
	t.Setenv("PIT_LOG_LEVEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"
default_branch = "trunk"

[diff]
context_lines = 5
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "trunk", cfg.DefaultBranch)
	assert.Equal(t, 5, cfg.Diff.ContextLines)
	assert.Equal(t, 512, cfg.Store.CacheSize, "unset keys keep defaults")
}

func TestLoadJSON(t *testing.T) {
	t.Setenv("PIT_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store": {"cache_size": 64}, "database": {"in_memory": true}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Store.CacheSize)
	assert.True(t, cfg.Database.InMemory)
	assert.Equal(t, "main", cfg.DefaultBranch)
}

func TestLoadINI(t *testing.T) {
	t.Setenv("PIT_LOG_LEVEL", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IniFileName), []byte(`
default_branch = develop

[store]
cache_size = 16
`), 0644))

	cfg, err := LoadRepo(dir)
	require.NoError(t, err)
	assert.Equal(t, "develop", cfg.DefaultBranch)
	assert.Equal(t, 16, cfg.Store.CacheSize)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Diff.ContextLines)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	yaml := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yaml, []byte("a: b"), 0644))
	_, err = Load(yaml)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("default_branch = \"\"\n"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLoadRepo(t *testing.T) {
	t.Setenv("PIT_LOG_LEVEL", "error")

	cfg, err := LoadRepo(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Diff.ContextLines)
}
