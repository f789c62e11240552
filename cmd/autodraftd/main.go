// Package main provides the CLI entry point for the autodraft service.
//
// Autodraft persists in-progress tournament drafts so users can resume work
// after a crash, a tab close, or a flaky connection.
//
// # Basic Usage
//
// Start the server:
//
//	autodraftd serve --config autodraft.yaml
//
// Sweep expired drafts once:
//
//	autodraftd prune --config autodraft.yaml
//
// Mint a development token:
//
//	autodraftd token --config autodraft.yaml --user u1
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "autodraftd",
		Short:        "Autodraft - tournament draft autosave service",
		Long:         "Autodraft stores in-progress tournament drafts and serves the save, restore, and delete API the client autosave pipeline talks to.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildPruneCmd(),
		buildTokenCmd(),
		buildVersionCmd(),
	)

	return rootCmd
}
