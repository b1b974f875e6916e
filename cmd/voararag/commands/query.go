package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voara-ai/voara-rag/internal/config"
	"github.com/voara-ai/voara-rag/internal/logging"
)

// NewQueryCmd constructs the `voararag query` command, which retrieves
// the most relevant knowledge base passages for a question.
func NewQueryCmd() *cobra.Command {
	var topK int
	var showSources bool
	var showScores bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Query the knowledge base",
		Long: `Retrieve the most relevant knowledge base passages for a question.

The question is embedded with query intent and matched against the
indexed chunks by cosine similarity. Only passages meeting the score
threshold are returned, assembled into a context block that fits the
configured character budget.

Examples:
  voararag query "What is the pricing?"
  voararag query --top-k 5 --sources "How do I cancel my subscription?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := strings.TrimSpace(args[0])
			if question == "" {
				return fmt.Errorf("query: question must not be empty")
			}

			settings, err := config.Settings()
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			emb, err := newEmbedder(ctx)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			store, err := openStore()
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer store.Close()

			retriever, err := buildRetriever(emb, store, settings)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			start := time.Now()
			ans, err := retriever.Answer(ctx, question, topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			if ans.Context == "" {
				fmt.Fprintln(out, "no relevant passages found")
				return nil
			}

			if showScores {
				for i, res := range ans.Results {
					fmt.Fprintf(out, "--- passage %d (score %.3f", i+1, res.Score)
					if res.Source != "" {
						fmt.Fprintf(out, ", %s", res.Source)
					}
					fmt.Fprintln(out, ") ---")
					fmt.Fprintln(out, res.Text)
					fmt.Fprintln(out)
				}
			} else {
				fmt.Fprintln(out, ans.Context)
			}

			if showSources && len(ans.Sources) > 0 {
				fmt.Fprintf(out, "\nsources: %s\n", strings.Join(ans.Sources, ", "))
			}
			fmt.Fprintf(out, "\nretrieved %d passage(s) in %dms\n", len(ans.Results), elapsed.Milliseconds())
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default: RAG_TOP_K)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the unique sources of the retrieved passages")
	cmd.Flags().BoolVar(&showScores, "scores", false, "Print each passage with its similarity score")

	return cmd
}
