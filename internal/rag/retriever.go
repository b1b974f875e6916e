package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/voara-ai/voara-rag/internal/budget"
)

// contextSeparator joins retrieved passages in a formatted context.
const contextSeparator = "\n\n"

// RetrieverConfig holds the retrieval defaults applied when a caller
// passes zero values.
type RetrieverConfig struct {
	// TopK is the default number of matches to request (default: 3).
	TopK int

	// ScoreThreshold is the minimum similarity score a match must meet
	// to be considered relevant (default: 0.5 for cosine similarity).
	ScoreThreshold float32

	// MaxContextChars is the character budget for formatted context
	// (default: budget.DefaultMaxContextChars).
	MaxContextChars int
}

// Retriever answers retrieval requests: it embeds the query, searches
// the vector store, and filters, deduplicates, and formats the matches.
// It is the component exercised once per conversational turn.
// Safe for concurrent use.
type Retriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// cfg holds the resolved retrieval defaults.
	cfg RetrieverConfig
}

// NewRetriever constructs a Retriever from the given Embedder and
// VectorStore, filling zero config values with defaults.
func NewRetriever(embedder Embedder, store VectorStore, cfg RetrieverConfig) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.5
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = budget.DefaultMaxContextChars
	}
	return &Retriever{embedder: embedder, store: store, cfg: cfg}, nil
}

// Retrieve returns the deduplicated matches for query, ordered by
// descending score, all meeting the configured score threshold. topK=0
// uses the configured default. Zero qualifying matches yields an empty
// slice and a nil error — "no relevant knowledge" is not a failure.
// Embedding and search failures wrap ErrRetrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	// An index that was never built is an empty knowledge base, not an
	// error. Absence is checked up front because searching a missing
	// collection is a backend error.
	info, err := r.store.CollectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: %w: %v", ErrRetrieval, err)
	}
	if info == nil || info.PointsCount == 0 {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query}, IntentQuery)
	if err != nil {
		return nil, fmt.Errorf("rag: query embedding: %w: %v", ErrRetrieval, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("rag: embedder returned %d vectors for one query: %w", len(vectors), ErrRetrieval)
	}

	matches, err := r.store.Search(ctx, vectors[0], topK, r.cfg.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search: %w: %v", ErrRetrieval, err)
	}

	return dedupe(matches), nil
}

// RetrieveContext returns the formatted context string for query,
// truncated at chunk boundaries to the configured budget. When
// includeMetadata is set each passage is prefixed with its source and
// header. An empty string means no relevant knowledge was found.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, includeMetadata bool) (string, error) {
	results, err := r.Retrieve(ctx, query, 0)
	if err != nil {
		return "", err
	}
	return formatContext(results, includeMetadata, r.cfg.MaxContextChars), nil
}

// RetrieveWithSources returns the formatted context together with the
// unique source identifiers of the passages that made it into the
// context, in rank order.
func (r *Retriever) RetrieveWithSources(ctx context.Context, query string, topK int) (string, []string, error) {
	ans, err := r.Answer(ctx, query, topK)
	if err != nil {
		return "", nil, err
	}
	return ans.Context, ans.Sources, nil
}

// Answer bundles everything one retrieval produces: the budgeted
// context, the passages that made it into the context, and their unique
// sources in rank order.
type Answer struct {
	// Context is the formatted context string, empty when nothing
	// relevant was found.
	Context string
	// Sources lists the unique source identifiers of the kept passages.
	Sources []string
	// Results holds the kept passages in descending score order.
	Results []Result
}

// Answer retrieves for query and assembles the full response in a
// single embed-and-search pass. topK=0 uses the configured default.
func (r *Retriever) Answer(ctx context.Context, query string, topK int) (*Answer, error) {
	results, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	kept := fitResults(results, false, r.cfg.MaxContextChars)

	var sources []string
	seen := make(map[string]bool)
	for _, res := range kept {
		if res.Source == "" || seen[res.Source] {
			continue
		}
		seen[res.Source] = true
		sources = append(sources, res.Source)
	}

	return &Answer{
		Context: joinResults(kept, false),
		Sources: sources,
		Results: kept,
	}, nil
}

// dedupe drops results whose text is identical, or whose source+header
// pair repeats, keeping the highest-scoring instance. The input is
// re-sorted by descending score first so the ordering holds for any
// backend.
func dedupe(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	seenText := make(map[string]bool, len(results))
	seenLoc := make(map[string]bool, len(results))

	out := results[:0]
	for _, res := range results {
		loc := res.Source + "\x00" + res.Header
		if seenText[res.Text] {
			continue
		}
		// Source+header only repeats meaningfully when both are set;
		// chunks without metadata are distinct passages.
		if (res.Source != "" || res.Header != "") && seenLoc[loc] {
			continue
		}
		seenText[res.Text] = true
		seenLoc[loc] = true
		out = append(out, res)
	}
	return out
}

// fitResults returns the prefix of results whose formatted passages fit
// within maxChars.
func fitResults(results []Result, includeMetadata bool, maxChars int) []Result {
	snippets := make([]string, len(results))
	for i, res := range results {
		snippets[i] = formatPassage(res, includeMetadata)
	}
	kept := budget.Fit(snippets, contextSeparator, maxChars)
	return results[:len(kept)]
}

// formatContext renders results into one budgeted string.
func formatContext(results []Result, includeMetadata bool, maxChars int) string {
	return joinResults(fitResults(results, includeMetadata, maxChars), includeMetadata)
}

// joinResults concatenates formatted passages with the context separator.
func joinResults(results []Result, includeMetadata bool) string {
	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = formatPassage(res, includeMetadata)
	}
	return strings.Join(parts, contextSeparator)
}

// formatPassage renders one result, optionally prefixed with source
// attribution, e.g. "[pricing.md | Plans]\nPricing starts at ...".
func formatPassage(res Result, includeMetadata bool) string {
	if !includeMetadata {
		return res.Text
	}

	var meta []string
	if res.Source != "" {
		meta = append(meta, res.Source)
	}
	if res.Header != "" {
		meta = append(meta, res.Header)
	}
	if len(meta) == 0 {
		return res.Text
	}
	return "[" + strings.Join(meta, " | ") + "]\n" + res.Text
}
