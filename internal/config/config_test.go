package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "database:\n  path: /tmp/x.db\nlog:\n  level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset fields keep defaults")
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "database:\n  path: /tmp/x.db\n")
	t.Setenv("CHOICETREE_DB", "/tmp/env.db")
	t.Setenv("CHOICETREE_LOG_FORMAT", "JSON")
	t.Setenv("CHOICETREE_METRICS_ADDR", "localhost:9464")
	t.Setenv("CHOICETREE_ASSUME_YES", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "localhost:9464", cfg.Metrics.Addr)
	assert.True(t, cfg.AssumeYes)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "invalid config")

	_, err = Load(writeFile(t, "metrics:\n  addr: not an address\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "log: [\n"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_DefaultFileMayBeMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, cfg.Database.Path, UserConfigDir)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "warn"
	path := filepath.Join(t.TempDir(), "nested", ConfigFile)
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", loaded.Log.Level)
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log.Format = "json"
	cfg.NewLogger(&buf).Info("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	cfg.Log.Format = "text"
	cfg.Log.Level = "error"
	cfg.NewLogger(&buf).Info("quiet")
	assert.Empty(t, buf.String())
}
