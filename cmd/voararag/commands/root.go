// Package commands defines all Cobra CLI commands for the voararag binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voara-ai/voara-rag/internal/audit"
	"github.com/voara-ai/voara-rag/internal/config"
	"github.com/voara-ai/voara-rag/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "voararag",
		Short: "voararag — knowledge base retrieval engine for Voara voice agents",
		Long: `voararag manages the Voara AI knowledge base: it ingests company
documents into a Qdrant vector collection and retrieves the most relevant
passages for caller questions during live voice conversations.

The embedding backend is selected via the EMBEDDING_PROVIDER environment
variable or a YAML config file (~/.voararag/config.yaml).
See 'voararag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Best effort: a .env in the working directory seeds the
			// environment without overriding existing variables.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.voararag/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewQueryCmd(),
		NewStatsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
