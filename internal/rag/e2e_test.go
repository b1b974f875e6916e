package rag_test

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/voara-ai/voara-rag/internal/ingestion"
	"github.com/voara-ai/voara-rag/internal/rag"
)

// These tests run the real pipeline and retriever against an in-memory
// vector store and a bag-of-words embedder, exercising the full
// chunk → embed → upsert → search path without external services.

// vocab is the embedding space of the test embedder. One dimension per
// term keeps cosine similarity interpretable: a query and a chunk score
// high exactly when they share vocabulary.
var vocab = []string{"pricing", "month", "support", "customer", "cancel", "refund", "plans"}

// bowEmbedder embeds text as its normalized term counts over vocab.
type bowEmbedder struct{}

func (bowEmbedder) Embed(_ context.Context, texts []string, _ rag.Intent) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(vocab))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,?!$/()[]#")
			for d, term := range vocab {
				if word == term {
					vec[d]++
				}
			}
		}
		out[i] = normalize(vec)
	}
	return out, nil
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// memStore is an in-memory rag.VectorStore with real cosine search.
type memStore struct {
	mu      sync.Mutex
	ensured bool
	points  map[string]rag.Point
}

func newMemStore() *memStore {
	return &memStore{points: make(map[string]rag.Point)}
}

func (s *memStore) EnsureCollection(_ context.Context, _ int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existed := s.ensured
	s.ensured = true
	return existed, nil
}

func (s *memStore) Upsert(_ context.Context, points []rag.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *memStore) DeleteBySource(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if p.Payload.Source == source {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *memStore) Search(_ context.Context, vector []float32, topK int, threshold float32) ([]rag.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []rag.Result
	for _, p := range s.points {
		score := cosine(vector, p.Vector)
		if score < threshold {
			continue
		}
		results = append(results, rag.Result{
			Text:   p.Payload.Text,
			Score:  score,
			Header: p.Payload.Header,
			Source: p.Payload.Source,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *memStore) CollectionInfo(_ context.Context) (*rag.CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ensured {
		return nil, nil
	}
	return &rag.CollectionInfo{PointsCount: uint64(len(s.points)), Status: "green"}, nil
}

func (s *memStore) Close() error { return nil }

func cosine(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func ingestAll(t *testing.T, store *memStore, docs []ingestion.Document) *ingestion.Report {
	t.Helper()
	pipeline, err := ingestion.NewPipeline(bowEmbedder{}, store, &ingestion.Config{
		ChunkSize:    60,
		ChunkOverlap: 10,
		Dimensions:   len(vocab),
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	report, err := pipeline.Ingest(context.Background(), docs)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if failed := report.Failed(); failed != 0 {
		t.Fatalf("%d document(s) failed: %+v", failed, report.Documents)
	}
	return report
}

func Test_EndToEnd_QueryFindsRelevantChunk(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ingestAll(t, store, []ingestion.Document{
		{Source: "about.md", Text: "Voara AI offers 24/7 customer support.\n\nPricing starts at $29/month."},
	})

	r, err := rag.NewRetriever(bowEmbedder{}, store, rag.RetrieverConfig{})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	got, err := r.RetrieveContext(context.Background(), "What is the pricing?", false)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}
	if !strings.Contains(got, "$29/month") {
		t.Errorf("context missing pricing passage: %q", got)
	}
	if strings.Contains(got, "customer support") {
		t.Errorf("irrelevant passage leaked into context: %q", got)
	}
}

func Test_EndToEnd_ReingestReplacesOldContent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ingestAll(t, store, []ingestion.Document{
		{Source: "pricing.md", Text: "Pricing starts at $29/month."},
	})
	ingestAll(t, store, []ingestion.Document{
		{Source: "pricing.md", Text: "Pricing starts at $49/month."},
	})

	r, err := rag.NewRetriever(bowEmbedder{}, store, rag.RetrieverConfig{})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	got, err := r.RetrieveContext(context.Background(), "What is the pricing?", false)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}
	if !strings.Contains(got, "$49/month") {
		t.Errorf("context missing updated pricing: %q", got)
	}
	if strings.Contains(got, "$29/month") {
		t.Errorf("stale pricing survived re-ingestion: %q", got)
	}
}

func Test_EndToEnd_HeadersCarriedIntoMetadata(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ingestAll(t, store, []ingestion.Document{
		{Source: "handbook.md", Text: "# Plans\n\nPricing starts at $29/month."},
	})

	r, err := rag.NewRetriever(bowEmbedder{}, store, rag.RetrieverConfig{})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	got, err := r.RetrieveContext(context.Background(), "What is the pricing?", true)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}
	if !strings.Contains(got, "[handbook.md | Plans]") {
		t.Errorf("metadata prefix missing: %q", got)
	}
}

func Test_EndToEnd_AnswerReportsSources(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ingestAll(t, store, []ingestion.Document{
		{Source: "pricing.md", Text: "Pricing starts at $29/month."},
		{Source: "cancel.md", Text: "You can cancel your subscription at any time."},
	})

	r, err := rag.NewRetriever(bowEmbedder{}, store, rag.RetrieverConfig{})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	ans, err := r.Answer(context.Background(), "How do I cancel?", 0)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 1 || ans.Sources[0] != "cancel.md" {
		t.Errorf("sources: got %v, want [cancel.md]", ans.Sources)
	}
}
