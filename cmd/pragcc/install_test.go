package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestInstallEditorMCPPreservesOtherServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{"other":{"command":"/bin/other"}},"theme":"dark"}`), 0o600))

	var out bytes.Buffer
	require.NoError(t, installEditorMCP(&out, "/usr/local/bin/pragcc", path, "Cursor", false))

	root := readJSON(t, path)
	assert.Equal(t, "dark", root["theme"])
	servers := root["mcpServers"].(map[string]any)
	assert.Contains(t, servers, "other")
	entry := servers[mcpServerKey].(map[string]any)
	assert.Equal(t, "/usr/local/bin/pragcc", entry["command"])
	assert.Equal(t, []any{"serve"}, entry["args"])

	require.NoError(t, removeEditorMCP(&out, path, "Cursor", false))
	servers = readJSON(t, path)["mcpServers"].(map[string]any)
	assert.NotContains(t, servers, mcpServerKey)
	assert.Contains(t, servers, "other")
}

func TestInstallEditorMCPCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".codeium", "windsurf", "mcp_config.json")
	require.NoError(t, installEditorMCP(&bytes.Buffer{}, "/bin/pragcc", path, "Windsurf", false))
	assert.Contains(t, readJSON(t, path)["mcpServers"], mcpServerKey)
}

func TestInstallEditorMCPDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	var out bytes.Buffer
	require.NoError(t, installEditorMCP(&out, "/bin/pragcc", path, "Cursor", true))
	assert.Contains(t, out.String(), "[dry-run]")
	assert.NoFileExists(t, path)

	require.NoError(t, removeEditorMCP(&out, path, "Cursor", true))
}

func TestInstallEditorMCPInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, installEditorMCP(&bytes.Buffer{}, "/bin/pragcc", path, "Cursor", false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestInstallCmdUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	f := newFixture(t)
	_, _, err := f.run(t, "install")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".cursor", "mcp.json"))
	assert.FileExists(t, filepath.Join(home, ".codeium", "windsurf", "mcp_config.json"))

	_, _, err = f.run(t, "uninstall")
	require.NoError(t, err)
	servers := readJSON(t, filepath.Join(home, ".cursor", "mcp.json"))["mcpServers"].(map[string]any)
	assert.Empty(t, servers)
}
