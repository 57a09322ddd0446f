package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPreservesOtherServers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claude_desktop_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0644))

	binary := filepath.Join(dir, "mcp-server-lite")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	got, err := Register(Options{ConfigPath: path, BinaryPath: binary, DataDir: "/data", UserID: "dr-a"})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Ctrl+Space", raw["globalShortcut"])

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.MCPServers, "other")
	entry := cfg.MCPServers[ServerName]
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, map[string]string{"RADREPORT_DATA_DIR": "/data", "RADREPORT_USER": "dr-a"}, entry.Env)

	st, err := Check(path)
	require.NoError(t, err)
	assert.True(t, st.Registered)
	assert.Empty(t, st.Issues)
}

func TestRegisterForwardsProviderKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	path := filepath.Join(t.TempDir(), "config.json")

	_, err := Register(Options{ConfigPath: path, BinaryPath: "/opt/mcp-server-lite", Provider: "anthropic"})
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	env := cfg.MCPServers[ServerName].Env
	assert.Equal(t, "anthropic", env["RADREPORT_LLM_PROVIDER"])
	assert.Equal(t, "sk-test", env["ANTHROPIC_API_KEY"])
}

func TestCheckReportsProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	st, err := Check(path)
	require.NoError(t, err)
	assert.False(t, st.Registered)
	assert.Equal(t, []string{"server is not registered"}, st.Issues)

	_, err = Register(Options{ConfigPath: path, BinaryPath: "/does/not/exist"})
	require.NoError(t, err)
	st, err = Check(path)
	require.NoError(t, err)
	assert.True(t, st.Registered)
	assert.Len(t, st.Issues, 1)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
