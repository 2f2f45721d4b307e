package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewstucki/icondir/internal/fixture"
)

func testTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	icon := fixture.Icon(1, []int{16}, [][]byte{fixture.PNG(16, color.NRGBA{G: 0xff, A: 0xff})})
	executable := fixture.Executable(fixture.ResourceSection(fixture.VirtualAddress, []fixture.Leaf{
		{Type: fixture.TypeIcon, ID: 1, Data: fixture.PNG(32, color.NRGBA{R: 0xff, A: 0xff})},
		{Type: fixture.TypeGroupIcon, ID: 1, Data: fixture.GroupDirectory(1, []byte{32}, []uint16{1})},
	}))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.ico"), icon, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "tool.exe"), executable, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.ico"), nil, 0644))
	return dir
}

func decodeOutput(t *testing.T, stdout *bytes.Buffer) []map[string]any {
	t.Helper()
	var files []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &files))
	return files
}

func names(files []map[string]any) []string {
	found := []string{}
	for _, f := range files {
		found = append(found, filepath.Base(f["name"].(string)))
	}
	return found
}

func TestRunDirectory(t *testing.T) {
	dir := testTree(t)
	var stdout, stderr bytes.Buffer

	require.Equal(t, 0, run([]string{"-workers", "2", dir}, &stdout, &stderr), stderr.String())
	files := decodeOutput(t, &stdout)
	require.Equal(t, []string{"app.ico", "tool.exe", "readme.txt"}, names(files))
	require.Equal(t, "text/plain", files[2]["mime"])
	require.Len(t, files[1]["containers"], 1)
}

func TestRunExport(t *testing.T) {
	dir := testTree(t)
	out := filepath.Join(t.TempDir(), "png")
	var stdout, stderr bytes.Buffer

	require.Equal(t, 0, run([]string{"-o", out, filepath.Join(dir, "nested", "tool.exe")}, &stdout, &stderr), stderr.String())
	files := decodeOutput(t, &stdout)
	require.Len(t, files, 1)
	require.Equal(t, []any{filepath.Join(out, "tool_00_32x32.png")}, files[0]["exported"])
	_, err := os.Stat(filepath.Join(out, "tool_00_32x32.png"))
	require.NoError(t, err)
}

func TestRunConfig(t *testing.T) {
	dir := testTree(t)
	path := writeConfig(t, "extensions: [ico]\nlog_level: error\n")
	var stdout, stderr bytes.Buffer

	require.Equal(t, 0, run([]string{"-config", path, dir}, &stdout, &stderr), stderr.String())
	require.Equal(t, []string{"app.ico"}, names(decodeOutput(t, &stdout)))
}

func TestRunLogLevelFlag(t *testing.T) {
	dir := testTree(t)
	var stdout, stderr bytes.Buffer

	require.Equal(t, 0, run([]string{"-log-level", " DEBUG ", "-o", t.TempDir(), dir}, &stdout, &stderr), stderr.String())
	require.Contains(t, stderr.String(), `msg="extracted icons"`)
	require.NotContains(t, stderr.String(), "unknown -log-level")

	stdout.Reset()
	stderr.Reset()
	require.Equal(t, 0, run([]string{"-log-level", "LOUD", "-o", t.TempDir(), dir}, &stdout, &stderr), stderr.String())
	require.Contains(t, stderr.String(), "unknown -log-level")
	require.Contains(t, stderr.String(), "log_level=LOUD")
	require.NotContains(t, stderr.String(), `msg="extracted icons"`)
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(nil, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	require.Equal(t, 1, run([]string{filepath.Join(t.TempDir(), "missing.exe")}, &stdout, &stderr))
	require.True(t, strings.HasPrefix(stderr.String(), "File '"))

	require.Equal(t, 2, run([]string{"-unknown"}, &stdout, &stderr))

	require.Equal(t, 1, run([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "."}, &stdout, &stderr))
	require.Empty(t, stdout.String())
}
