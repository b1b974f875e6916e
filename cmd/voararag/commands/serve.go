package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voara-ai/voara-rag/internal/config"
	"github.com/voara-ai/voara-rag/internal/contextstore"
	"github.com/voara-ai/voara-rag/internal/embedder"
	"github.com/voara-ai/voara-rag/internal/logging"
	"github.com/voara-ai/voara-rag/internal/server"
)

// NewServeCmd constructs the `voararag serve` command, which starts the
// retrieval HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the retrieval HTTP API",
		Long: `Start the voararag HTTP server.

The server exposes the retrieval engine to the voice agent platform:
POST /api/rag/query answers questions against the knowledge base,
GET /api/rag/stats reports collection health, and the retrieval context
endpoints expose what the last search surfaced. Liveness, readiness,
and Prometheus metrics endpoints are included for operations.

Examples:
  voararag serve
  voararag serve --port 9090
  VOARARAG_API_KEY=secret voararag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			settings, err := config.Settings()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			emb, err := newEmbedder(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			backend := embedder.Backend()
			log.Info("embedder initialised",
				slog.String("backend", backend),
				slog.String("model", embedder.ModelName()),
			)

			store, err := openStore()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			retriever, err := buildRetriever(emb, store, settings)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// Open the retrieval context store. VOARARAG_CONTEXT_DB overrides
			// the default path (~/.voararag/context.db). Set to "disabled" to
			// turn context persistence off.
			var contexts contextstore.Store
			dbPath := os.Getenv("VOARARAG_CONTEXT_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = contextstore.DefaultDBPath()
					if err != nil {
						log.Warn("context: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					cs, csErr := contextstore.Open(dbPath)
					if csErr != nil {
						log.Warn("context: failed to open store, disabling", slog.Any("error", csErr))
					} else {
						contexts = cs
						defer func() { _ = cs.Close() }()
						log.Info("context: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("context: disabled via VOARARAG_CONTEXT_DB=disabled")
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(store.Client()),
				server.NewEmbedderPinger(emb, backend),
			}

			srv, err := server.New(retriever, store, contexts, &server.Config{
				Host:                host,
				Port:                port,
				Logger:              log,
				Pingers:             pingers,
				APIKey:              os.Getenv("VOARARAG_API_KEY"),
				Collection:          store.CollectionName(),
				EmbeddingBackend:    backend,
				EmbeddingModel:      embedder.ModelName(),
				EmbeddingDimensions: embedder.DefaultDimensions(backend),
				ChunkSize:           settings.ChunkSize,
				ChunkOverlap:        settings.ChunkOverlap,
				TopK:                settings.TopK,
				ScoreThreshold:      settings.ScoreThreshold,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("SERVER_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("SERVER_PORT", 8080), "TCP port to listen on")

	return cmd
}
