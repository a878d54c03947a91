// Package config loads Alfred's startup configuration from a TOML file
// with environment-variable overrides, in the same layered style the
// reference server uses: defaults, then file, then env, each layer
// only overriding non-empty values.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the Alfred engine.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Alfred   AlfredConfig   `toml:"alfred"`
	Provider ProviderConfig `toml:"provider"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// AlfredConfig holds the engine's own behavioral switches.
type AlfredConfig struct {
	// WorkspaceRoot is where per-task state directories live:
	// {workspace_root}/{task_id}/task_state.json etc.
	WorkspaceRoot string `toml:"workspace_root"`
	// AutonomousMode, when true, makes an AI-review approval also fire
	// human_approve in the same call, bypassing the human gate.
	AutonomousMode bool `toml:"autonomous_mode"`
}

// ProviderConfig selects and configures the TaskProvider.
type ProviderConfig struct {
	// Type selects the provider implementation. Only "markdown" (local
	// files under TasksRoot) ships with the core; "jira"/"linear" are
	// named here only as documented extension points.
	Type string `toml:"type"`
	// TasksRoot is where task definition markdown files live:
	// {tasks_root}/{task_id}.md. Only meaningful when Type == "markdown".
	TasksRoot string `toml:"tasks_root"`
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load creates a Config by reading from a TOML config file and
// environment variables. Precedence: environment variables > config
// file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. ALFRED_CONFIG environment variable
//  3. ./alfred.toml (current directory)
//  4. ~/.config/alfred/alfred.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables
// always override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Alfred: AlfredConfig{
			WorkspaceRoot:  ".alfred/workspace",
			AutonomousMode: false,
		},
		Provider: ProviderConfig{
			Type:      "markdown",
			TasksRoot: ".alfred/tasks",
		},
		Server: ServerConfig{
			Name:    "alfred",
			Version: "0.1.0",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty
// string if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv("ALFRED_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("alfred.toml"); err == nil {
		return "alfred.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/alfred/alfred.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config
// values. An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("ALFRED_WORKSPACE_ROOT", &c.Alfred.WorkspaceRoot)
	envOverride("ALFRED_PROVIDER_TYPE", &c.Provider.Type)
	envOverride("ALFRED_TASKS_ROOT", &c.Provider.TasksRoot)
	envOverride("ALFRED_SERVER_NAME", &c.Server.Name)
	envOverride("ALFRED_SERVER_VERSION", &c.Server.Version)
	envOverride("ALFRED_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("ALFRED_AUTONOMOUS_MODE"); v != "" {
		c.Alfred.AutonomousMode = v == "true" || v == "1"
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Alfred.WorkspaceRoot == "" {
		return fmt.Errorf("alfred.workspace_root must not be empty")
	}
	switch c.Provider.Type {
	case "markdown":
		if c.Provider.TasksRoot == "" {
			return fmt.Errorf("provider.tasks_root is required for the markdown provider")
		}
	case "":
		return fmt.Errorf("provider.type must not be empty")
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is
// non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
