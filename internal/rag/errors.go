package rag

import "errors"

// Sentinel errors for the retrieval engine. Components wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify failures with
// errors.Is without depending on concrete backends.
var (
	// ErrChunking reports invalid chunking parameters, such as an overlap
	// that is not smaller than the chunk size.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding reports an embedding provider failure (rate limit,
	// network, invalid input). Retry policy is the caller's decision.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore reports a vector store connection or backend failure.
	// A missing collection is not ErrStore — absence is reported as
	// (nil, nil) from CollectionInfo.
	ErrStore = errors.New("vector store failed")

	// ErrDimensionMismatch reports a vector whose dimension differs from
	// the collection's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRetrieval reports an aggregate failure while answering a
	// retrieval request (embedding or search).
	ErrRetrieval = errors.New("retrieval failed")

	// ErrIngestion reports a per-document failure during ingestion. One
	// document's failure never aborts the rest of the batch.
	ErrIngestion = errors.New("ingestion failed")
)
