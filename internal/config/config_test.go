package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".alfred/workspace", cfg.Alfred.WorkspaceRoot)
	assert.False(t, cfg.Alfred.AutonomousMode)
	assert.Equal(t, "markdown", cfg.Provider.Type)
	assert.Equal(t, "alfred", cfg.Server.Name)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alfred.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[alfred]
workspace_root = "/tmp/ws"
autonomous_mode = true

[provider]
type = "markdown"
tasks_root = "/tmp/tasks"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ws", cfg.Alfred.WorkspaceRoot)
	assert.True(t, cfg.Alfred.AutonomousMode)
	assert.Equal(t, "/tmp/tasks", cfg.Provider.TasksRoot)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alfred.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[alfred]
workspace_root = "/tmp/ws"
`), 0o644))

	t.Setenv("ALFRED_WORKSPACE_ROOT", "/tmp/from-env")
	t.Setenv("ALFRED_AUTONOMOUS_MODE", "1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-env", cfg.Alfred.WorkspaceRoot)
	assert.True(t, cfg.Alfred.AutonomousMode)
}

func TestValidate_RejectsEmptyWorkspaceRoot(t *testing.T) {
	cfg := &Config{Provider: ProviderConfig{Type: "markdown", TasksRoot: "x"}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsMarkdownProviderWithoutTasksRoot(t *testing.T) {
	cfg := &Config{Alfred: AlfredConfig{WorkspaceRoot: "x"}, Provider: ProviderConfig{Type: "markdown"}}
	err := cfg.Validate()
	require.Error(t, err)
}
