// Package rag defines the core types and interfaces of the retrieval
// engine: chunked knowledge, embedding, vector storage, and retrieval.
// Concrete implementations (Qdrant, Gemini, etc.) satisfy these interfaces
// so the conversation layer never depends on a specific backend.
package rag

import (
	"context"
)

// Intent selects how text is embedded. Some embedding models (notably
// Gemini) optimize differently for indexing-time documents and query-time
// search text, so both the ingestion pipeline and the retriever must state
// which side of the index they are on.
type Intent string

const (
	// IntentDocument embeds text for storage in the index.
	IntentDocument Intent = "document"
	// IntentQuery embeds text for searching the index.
	IntentQuery Intent = "query"
)

// Chunk is a bounded span of source text, the unit of embedding and
// retrieval. Chunks are immutable once embedded; re-ingesting a source
// supersedes its previous chunks rather than mutating them.
type Chunk struct {
	// ID is the stable identifier, derived from Source and Position.
	ID string

	// Text is the chunk content. Its rune count never exceeds the chunk
	// size it was produced with.
	Text string

	// Source identifies the origin document (e.g. a relative file path).
	Source string

	// Header is the nearest enclosing heading line preceding this chunk,
	// or empty if the document has none.
	Header string

	// Position is the ordinal index of this chunk within its source.
	Position int
}

// Point is the unit stored in the vector database: an id, its embedding
// vector, and the chunk payload carried alongside it.
type Point struct {
	// ID uniquely identifies one chunk. Upserting an existing ID replaces
	// the prior vector and payload.
	ID string

	// Vector is the chunk's embedding. All vectors in one collection
	// share a single dimension.
	Vector []float32

	// Payload is the chunk metadata persisted with the vector.
	Payload Chunk
}

// Result is one scored retrieval match. A slice of Results is always
// ordered by descending score.
type Result struct {
	// Text is the retrieved chunk content.
	Text string

	// Score is the cosine similarity of the match; higher is better.
	Score float32

	// Header is the section heading stored with the chunk, may be empty.
	Header string

	// Source is the origin document identifier.
	Source string
}

// CollectionInfo describes the state of the backing collection.
type CollectionInfo struct {
	// PointsCount is the number of points currently stored.
	PointsCount uint64

	// Status is the backend-reported collection status (e.g. "green").
	Status string
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines and hold
// no per-call mutable state; caching, if any, belongs to the caller.
type Embedder interface {
	// Embed converts a batch of texts into their embeddings for the given
	// intent. The returned slice is parallel to the input: output index i
	// is the vector for texts[i]. An empty input yields an empty output
	// without a provider call. Failures wrap ErrEmbedding.
	Embed(ctx context.Context, texts []string, intent Intent) ([][]float32, error)
}

// VectorStore persists and searches chunk embeddings. Implementations
// hold a single long-lived connection shared by all callers and must be
// safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the backing collection sized for dimension
	// if it does not exist. Returns whether the collection already
	// existed. Idempotent.
	EnsureCollection(ctx context.Context, dimension int) (existed bool, err error)

	// Upsert stores the given points, replacing any existing ids. The
	// batch succeeds or fails as a whole from the caller's perspective;
	// on error the caller must treat the entire batch as unconfirmed.
	Upsert(ctx context.Context, points []Point) error

	// Search returns at most topK matches for vector with score >=
	// scoreThreshold, ordered by descending score. Tie ordering between
	// equal scores is backend-defined.
	Search(ctx context.Context, vector []float32, topK int, scoreThreshold float32) ([]Result, error)

	// CollectionInfo returns the collection state, or (nil, nil) when the
	// collection does not exist. Absence is not an error — connection and
	// backend failures wrap ErrStore.
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)

	// DeleteBySource removes all points whose payload source matches the
	// given identifier. Used to supersede a document's chunks on
	// re-ingestion.
	DeleteBySource(ctx context.Context, source string) error

	// Close releases the underlying connection. Safe to call more than
	// once.
	Close() error
}
