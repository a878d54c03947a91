// Command alfred runs the Alfred workflow orchestration engine as an
// MCP server over stdio, alongside a couple of thin scaffolding
// subcommands (init, version), organised as a single cobra root with
// one file per subcommand.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// version is set via -ldflags "-X main.version=..." at release build
// time; "dev" is the fallback for local builds.
var version = "dev"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "alfred",
		Short:         "Alfred drives AI coding agents through a planning/implementation/review/testing/finalization workflow via MCP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to alfred.toml (default: $ALFRED_CONFIG, ./alfred.toml, ~/.config/alfred/alfred.toml)")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
