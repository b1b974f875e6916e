// Package embedder provides implementations of the rag.Embedder interface
// for converting text into dense vector embeddings. Gemini is the default
// backend — the knowledge base is indexed with text-embedding-004 at 768
// dimensions — with OpenAI and Ollama available as plain-HTTP
// alternatives for local or self-hosted setups.
package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/voara-ai/voara-rag/internal/rag"
)

// Gemini task types corresponding to the two embedding intents. Gemini
// produces asymmetric embeddings: documents and queries are projected
// differently, which measurably improves retrieval over a single
// symmetric embedding.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GeminiEmbedder implements rag.Embedder using the Gemini embeddings API
// via the google.golang.org/genai client. It is safe for concurrent use.
type GeminiEmbedder struct {
	// client is the shared genai client.
	client *genai.Client
	// model is the embedding model name (e.g. "text-embedding-004").
	model string
	// dimensions is the requested output vector length (0 = model default).
	dimensions int
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Google AI API key.
	APIKey string
	// Model is the embedding model name (e.g. "text-embedding-004").
	Model string
	// Dimensions is the requested output vector length (0 = model default).
	Dimensions int
}

// NewGeminiEmbedder constructs a GeminiEmbedder from the given config.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embedder: API key must not be empty: %w", rag.ErrEmbedding)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create client: %w: %v", rag.ErrEmbedding, err)
	}

	return &GeminiEmbedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts a batch of texts into embeddings using the task type for
// the given intent. The returned slice is parallel to the input.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string, intent rag.Intent) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	cfg := &genai.EmbedContentConfig{
		TaskType: taskTypeFor(intent),
	}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(e.dimensions))
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w: %v", rag.ErrEmbedding, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d: %w",
			len(texts), len(resp.Embeddings), rag.ErrEmbedding)
	}

	// The API returns embeddings in request order.
	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embedder: empty embedding at index %d: %w", i, rag.ErrEmbedding)
		}
		vectors[i] = emb.Values
	}

	return vectors, nil
}

// taskTypeFor maps an embedding intent to the Gemini task type.
func taskTypeFor(intent rag.Intent) string {
	if intent == rag.IntentQuery {
		return taskRetrievalQuery
	}
	return taskRetrievalDocument
}
