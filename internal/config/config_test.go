package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, DefaultFile), dir)
	require.NoError(t, err)
	require.Equal(t, Default(dir), cfg)
	require.Equal(t, "python", cfg.Python.Executable)
	require.True(t, cfg.Python.AutocompleteArguments)
	require.False(t, cfg.Python.IncludeOptionalArguments)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
python:
  executable: /usr/bin/python3
  paths: [/src/lib]
  include_optional_arguments: true
hack:
  available: false
`), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/python3", cfg.Python.Executable)
	require.Equal(t, []string{"/src/lib"}, cfg.Python.Paths)
	require.True(t, cfg.Python.IncludeOptionalArguments)
	require.True(t, cfg.Python.AutocompleteArguments)
	require.Equal(t, filepath.Join("python", "jediserver.py"), cfg.Python.ServerPath)
	require.False(t, cfg.Hack.Available)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)

	require.NoError(t, os.WriteFile(path, []byte("python: [\n"), 0o644))
	_, err := Load(path, dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o644))
	_, err = Load(path, dir)
	require.ErrorContains(t, err, "log_level")

	require.NoError(t, os.WriteFile(path, []byte("hack:\n  command: \"\"\n"), 0o644))
	_, err = Load(path, dir)
	require.ErrorContains(t, err, "hack.command")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)
}
