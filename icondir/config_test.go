package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), uuid.NewString()+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, runtime.NumCPU(), cfg.Workers)
	require.Equal(t, slog.LevelInfo, cfg.level())
	require.True(t, cfg.wants("anything.bin"))
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
workers: 3
output_dir: /tmp/icons
log_level: DEBUG
extensions: [ico, ".EXE", " "]
`))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, "/tmp/icons", cfg.OutputDir)
	require.Equal(t, slog.LevelDebug, cfg.level())
	require.Equal(t, []string{".ico", ".exe"}, cfg.Extensions)

	require.True(t, cfg.wants("folder/app.ICO"))
	require.True(t, cfg.wants("setup.exe"))
	require.False(t, cfg.wants("shell32.dll"))
}

func TestLoadConfigFallsBack(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "workers: -2\nlog_level: loud\n"))
	require.NoError(t, err)
	require.Equal(t, runtime.NumCPU(), cfg.Workers)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestNormalizeLevel(t *testing.T) {
	for value, expected := range map[string]string{"debug": "debug", " WARN ": "warn", "Error": "error"} {
		level, ok := normalizeLevel(value)
		require.True(t, ok, value)
		require.Equal(t, expected, level)
	}
	for _, value := range []string{"", "loud", "trace"} {
		_, ok := normalizeLevel(value)
		require.False(t, ok, value)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = loadConfig(writeConfig(t, "workers: [1, 2"))
	require.Error(t, err)
}
