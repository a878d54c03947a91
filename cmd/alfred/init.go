package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigTemplate = `[alfred]
workspace_root = "%s"
autonomous_mode = false

[provider]
type = "markdown"
tasks_root = "%s"

[server]
name = "alfred"
version = "0.1.0"

[log]
level = "info"
`

func newInitCommand() *cobra.Command {
	var workspaceRoot, tasksRoot string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a workspace root, tasks directory, and default alfred.toml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(workspaceRoot, tasksRoot)
		},
	}
	cmd.Flags().StringVar(&workspaceRoot, "workspace-root", ".alfred/workspace", "directory to scaffold for per-task engine state")
	cmd.Flags().StringVar(&tasksRoot, "tasks-root", ".alfred/tasks", "directory to scaffold for task definition markdown files")
	return cmd
}

func runInit(workspaceRoot, tasksRoot string) error {
	for _, dir := range []string{workspaceRoot, tasksRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	configPath := "alfred.toml"
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("%s already exists, leaving it untouched\n", configPath)
	} else {
		contents := fmt.Sprintf(defaultConfigTemplate, workspaceRoot, tasksRoot)
		if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", configPath, err)
		}
		fmt.Printf("wrote %s\n", configPath)
	}

	fmt.Printf("scaffolded %s and %s\n", filepath.Clean(workspaceRoot), filepath.Clean(tasksRoot))
	fmt.Println("add task definitions under the tasks directory as {task_id}.md, then run `alfred serve`.")
	return nil
}
