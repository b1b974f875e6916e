package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voara-ai/voara-rag/internal/embedder"
	"github.com/voara-ai/voara-rag/internal/logging"
)

// NewStatsCmd constructs the `voararag stats` command, which prints the
// knowledge base collection status.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base collection statistics",
		Long: `Show the status of the knowledge base collection: whether it exists,
how many vectors it holds, and which embedding configuration is active.

Examples:
  voararag stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			store, err := openStore()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer store.Close()

			info, err := store.CollectionInfo(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			out := cmd.OutOrStdout()
			backend := embedder.Backend()

			fmt.Fprintf(out, "collection:           %s\n", store.CollectionName())
			if info == nil {
				fmt.Fprintf(out, "status:               not_found (run 'voararag ingest' to create it)\n")
			} else {
				fmt.Fprintf(out, "status:               %s\n", info.Status)
				fmt.Fprintf(out, "points:               %d\n", info.PointsCount)
			}
			fmt.Fprintf(out, "embedding backend:    %s\n", backend)
			fmt.Fprintf(out, "embedding model:      %s\n", embedder.ModelName())
			fmt.Fprintf(out, "embedding dimensions: %d\n", embedder.DefaultDimensions(backend))
			return nil
		},
	}
}
