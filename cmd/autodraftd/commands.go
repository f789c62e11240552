package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the draft service.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the autodraft service",
		Long: `Start the autodraft HTTP service.

The server will:
1. Load configuration from the specified file
2. Open the configured draft store (memory, sqlite, or postgres)
3. Serve the draft save/restore/delete API with bearer auth
4. Run the scheduled expiry sweep

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  autodraftd serve

  # Start with custom config
  autodraftd serve --config /etc/autodraft/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "autodraft.yaml",
		"Path to configuration file (YAML or JSON5)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// buildPruneCmd creates the "prune" command that runs one expiry sweep.
func buildPruneCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete drafts older than the configured retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "autodraft.yaml",
		"Path to configuration file (YAML or JSON5)")

	return cmd
}

// buildVersionCmd creates the "version" command.
func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("autodraftd %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// buildTokenCmd creates the "token" command that mints a development JWT.
func buildTokenCmd() *cobra.Command {
	var (
		configPath string
		userID     string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, configPath, userID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "autodraft.yaml",
		"Path to configuration file (YAML or JSON5)")
	cmd.Flags().StringVarP(&userID, "user", "u", "",
		"User ID to embed in the token (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
