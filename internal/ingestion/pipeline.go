// Package ingestion implements the knowledge base ingestion pipeline.
// It chunks raw documents, embeds each chunk with document intent, and
// upserts the resulting points into the vector store. Documents are
// processed concurrently with a bounded worker count, and embedding
// calls are paced through a shared rate limiter so large corpora do not
// trip provider quotas. This pipeline is invoked by the `voararag
// ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/voara-ai/voara-rag/internal/chunker"
	"github.com/voara-ai/voara-rag/internal/logging"
	"github.com/voara-ai/voara-rag/internal/rag"
)

// Document is a raw document handed to the pipeline.
type Document struct {
	// Source identifies the document, typically a cleaned file path.
	// Re-ingesting the same source replaces its previous chunks.
	Source string

	// Text is the full document content.
	Text string
}

// DocumentResult records the outcome of ingesting one document.
type DocumentResult struct {
	// Source is the document identifier.
	Source string

	// Chunks is the number of chunks written for this document.
	Chunks int

	// Err is non-nil when the document failed. A failed document never
	// partially overwrites its previously ingested chunks.
	Err error
}

// Report summarizes a full pipeline run.
type Report struct {
	// ChunksCreated is the total number of chunks produced by the chunker.
	ChunksCreated int

	// VectorsWritten is the total number of points upserted into the store.
	VectorsWritten int

	// Documents holds one entry per input document, in input order.
	Documents []DocumentResult
}

// Failed returns the number of documents that ended in error.
func (r *Report) Failed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Err != nil {
			n++
		}
	}
	return n
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Zero disables overlap; must be smaller than ChunkSize.
	ChunkOverlap int

	// Dimensions is the expected embedding vector length. Vectors of any
	// other length are rejected before they reach the store.
	Dimensions int

	// Concurrency bounds the number of documents processed in parallel.
	// Defaults to 4 if zero.
	Concurrency int

	// EmbedBatchSize caps the number of chunks sent to the embedder in a
	// single call. Defaults to 100 if zero.
	EmbedBatchSize int

	// EmbedRate limits embedder calls per second across all workers.
	// Zero means unlimited.
	EmbedRate rate.Limit
}

// Pipeline orchestrates the chunk → embed → upsert flow for a set of
// documents.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// limiter paces embedder calls across all workers. Nil when
	// EmbedRate is zero.
	limiter *rate.Limiter
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		return nil, fmt.Errorf("ingestion: chunk overlap must not be negative, got %d: %w", cfg.ChunkOverlap, rag.ErrChunking)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("ingestion: chunk overlap %d must be smaller than chunk size %d: %w",
			cfg.ChunkOverlap, cfg.ChunkSize, rag.ErrChunking)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("ingestion: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 100
	}

	p := &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
	if cfg.EmbedRate > 0 {
		p.limiter = rate.NewLimiter(cfg.EmbedRate, 1)
	}
	return p, nil
}

// Ingest chunks, embeds, and stores all provided documents. The target
// collection is created first if it does not exist. Documents are
// independent: a failure in one is recorded in its DocumentResult and
// does not stop the others. Ingest returns an error only when the run
// could not start at all (collection setup, cancelled context).
func (p *Pipeline) Ingest(ctx context.Context, docs []Document) (*Report, error) {
	log := logging.FromContext(ctx)

	existed, err := p.store.EnsureCollection(ctx, p.cfg.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("ingestion: ensure collection: %w", err)
	}
	if !existed {
		log.Info("created collection", "dimensions", p.cfg.Dimensions)
	}

	report := &Report{Documents: make([]DocumentResult, len(docs))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			chunks, err := p.ingestOne(gctx, doc)

			mu.Lock()
			defer mu.Unlock()
			report.Documents[i] = DocumentResult{Source: doc.Source, Chunks: chunks, Err: err}
			if err != nil {
				log.Error("document failed", "source", doc.Source, "error", err)
				return nil
			}
			report.ChunksCreated += chunks
			report.VectorsWritten += chunks
			log.Info("document ingested", "source", doc.Source, "chunks", chunks)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}
	return report, nil
}

// ingestOne processes a single document end to end and returns the
// number of chunks written. All embedding happens before the store is
// touched, so a mid-document embedding failure leaves previously
// ingested data for this source intact.
func (p *Pipeline) ingestOne(ctx context.Context, doc Document) (int, error) {
	chunks, err := chunker.Chunk(strings.TrimSpace(doc.Text), doc.Source, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("%w: chunk %s: %v", rag.ErrIngestion, doc.Source, err)
	}
	if len(chunks) == 0 {
		// Empty document: drop any stale chunks from a previous version.
		if err := p.store.DeleteBySource(ctx, doc.Source); err != nil {
			return 0, fmt.Errorf("%w: delete stale chunks for %s: %v", rag.ErrIngestion, doc.Source, err)
		}
		return 0, nil
	}

	points := make([]rag.Point, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.cfg.EmbedBatchSize {
		end := min(start+p.cfg.EmbedBatchSize, len(chunks))
		batch := chunks[start:end]

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return 0, fmt.Errorf("%w: rate limit wait: %v", rag.ErrIngestion, err)
			}
		}

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.embedder.Embed(ctx, texts, rag.IntentDocument)
		if err != nil {
			return 0, fmt.Errorf("%w: embed %s: %v", rag.ErrIngestion, doc.Source, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("%w: embed %s: expected %d vectors, got %d",
				rag.ErrIngestion, doc.Source, len(batch), len(vectors))
		}

		for i, vec := range vectors {
			if len(vec) != p.cfg.Dimensions {
				return 0, fmt.Errorf("%w: %s chunk %d: vector has %d dimensions, collection expects %d",
					rag.ErrDimensionMismatch, doc.Source, batch[i].Position, len(vec), p.cfg.Dimensions)
			}
			points = append(points, rag.Point{
				ID:      batch[i].ID,
				Vector:  vec,
				Payload: batch[i],
			})
		}
	}

	// Replace, not append: drop the previous version of this source so a
	// shorter re-ingest cannot leave stale tail chunks behind.
	if err := p.store.DeleteBySource(ctx, doc.Source); err != nil {
		return 0, fmt.Errorf("%w: delete stale chunks for %s: %v", rag.ErrIngestion, doc.Source, err)
	}
	if err := p.store.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("%w: upsert %s: %v", rag.ErrIngestion, doc.Source, err)
	}
	return len(points), nil
}
