package commands

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voara-ai/voara-rag/internal/config"
	"github.com/voara-ai/voara-rag/internal/embedder"
	"github.com/voara-ai/voara-rag/internal/ingestion"
	"github.com/voara-ai/voara-rag/internal/logging"
)

// ingestExtensions lists the file extensions picked up by --dir.
var ingestExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// NewIngestCmd constructs the `voararag ingest` command, which chunks,
// embeds, and indexes documents into the knowledge base collection.
func NewIngestCmd() *cobra.Command {
	var files []string
	var dirs []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the knowledge base",
		Long: `Chunk, embed, and index documents into the Qdrant knowledge base.

Re-ingesting a file replaces its previous chunks, so updating a document
never leaves stale passages behind. Directories are walked recursively
and every .md and .txt file is ingested, identified by its path relative
to the directory root.

Required environment variables:
  GOOGLE_API_KEY       Google AI key for the default gemini backend
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: voara_kb)
  EMBEDDING_*          Backend overrides (see README)

Examples:
  voararag ingest --file docs/pricing.md
  voararag ingest --dir ./knowledge-base
  voararag ingest --file faq.md --file policies.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(files) == 0 && len(dirs) == 0 {
				return fmt.Errorf("ingest: at least one --file or --dir is required")
			}

			docs, err := collectDocuments(files, dirs)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if len(docs) == 0 {
				return fmt.Errorf("ingest: no ingestable files found")
			}

			settings, err := config.Settings()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := newEmbedder(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			backend := embedder.Backend()
			log.Info("embedder initialised",
				slog.String("backend", backend),
				slog.String("model", embedder.ModelName()),
			)

			store, err := openStore()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()
			log.Info("qdrant store ready", slog.String("collection", store.CollectionName()))

			pipeline, err := ingestion.NewPipeline(emb, store, &ingestion.Config{
				ChunkSize:    settings.ChunkSize,
				ChunkOverlap: settings.ChunkOverlap,
				Dimensions:   embedder.DefaultDimensions(backend),
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.Int("documents", len(docs)))

			report, err := pipeline.Ingest(ctx, docs)
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			for _, d := range report.Documents {
				if d.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAILED  %s: %v\n", d.Source, d.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok      %s (%d chunks)\n", d.Source, d.Chunks)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\ningested %d chunks from %d document(s)\n",
				report.VectorsWritten, len(report.Documents)-report.Failed())

			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("ingest: %d of %d document(s) failed", failed, len(report.Documents))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Document file to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&dirs, "dir", "d", nil, "Directory to ingest recursively (repeatable)")

	return cmd
}

// collectDocuments reads the given files and directories into pipeline
// documents. File sources are the cleaned paths as given; directory
// sources are slash-separated paths relative to the directory root.
func collectDocuments(files, dirs []string) ([]ingestion.Document, error) {
	var docs []ingestion.Document

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		docs = append(docs, ingestion.Document{
			Source: filepath.ToSlash(filepath.Clean(f)),
			Text:   string(data),
		})
	}

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !ingestExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				rel = path
			}
			docs = append(docs, ingestion.Document{
				Source: filepath.ToSlash(rel),
				Text:   string(data),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}

	return docs, nil
}
