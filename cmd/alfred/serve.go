package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfred-dev/alfred/internal/config"
	"github.com/alfred-dev/alfred/internal/handler"
	"github.com/alfred-dev/alfred/internal/mcpserver"
	"github.com/alfred-dev/alfred/internal/mcptools"
	"github.com/alfred-dev/alfred/internal/prompttemplate"
	"github.com/alfred-dev/alfred/internal/router"
	"github.com/alfred-dev/alfred/internal/store"
	"github.com/alfred-dev/alfred/internal/taskfile"
	"github.com/alfred-dev/alfred/internal/tooldef"
	"github.com/alfred-dev/alfred/internal/validation"
	"github.com/alfred-dev/alfred/internal/workflow"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Alfred MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	resolvedVersion := cfg.Server.Version
	if version != "dev" {
		resolvedVersion = version
	}
	logger.Info("starting alfred",
		"version", resolvedVersion,
		"workspace_root", cfg.Alfred.WorkspaceRoot,
		"provider_type", cfg.Provider.Type,
		"autonomous_mode", cfg.Alfred.AutonomousMode,
	)

	provider := taskfile.New(cfg.Provider.TasksRoot)

	defs := tooldef.BuildDefinitions(provider)
	schemas, err := validation.BuiltInSchemas()
	if err != nil {
		return fmt.Errorf("compiling artifact schemas: %w", err)
	}
	validation.ApplyTo(defs, schemas)

	registry, err := tooldef.NewRegistry(defs)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	engine := workflow.NewEngine()
	for _, d := range registry.All() {
		if !d.IsWorkflow() {
			continue
		}
		graph, err := workflow.Build(d.Name, d.WorkStates, d.TerminalState, d.DispatchState)
		if err != nil {
			return fmt.Errorf("building state graph for %s: %w", d.Name, err)
		}
		engine.Register(graph)
	}

	statusRouter := router.New(registry)
	taskStore := store.New(cfg.Alfred.WorkspaceRoot)

	renderer, err := prompttemplate.New()
	if err != nil {
		return fmt.Errorf("loading prompt templates: %w", err)
	}

	h := handler.New(taskStore, registry, engine, statusRouter, provider, renderer, cfg.Alfred.AutonomousMode)

	mcpRegistry := mcpserver.NewRegistry()
	mcptools.RegisterAll(mcpRegistry, h)

	server := mcpserver.NewServer(mcpRegistry, mcpserver.ServerInfo{
		Name:    cfg.Server.Name,
		Version: resolvedVersion,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return server.Run(ctx)
}
