package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/voara-ai/voara-rag/internal/config"
	"github.com/voara-ai/voara-rag/internal/embedder"
	"github.com/voara-ai/voara-rag/internal/rag"
)

// defaultCollection is the Qdrant collection the knowledge base lives in.
const defaultCollection = "voara_kb"

// openStore connects to Qdrant using the environment configuration.
// The caller owns the returned store and must Close it.
func openStore() (*rag.QdrantStore, error) {
	store, err := rag.NewQdrantStore(&rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return store, nil
}

// buildRetriever wires the embedder and store into a Retriever using the
// resolved retrieval settings.
func buildRetriever(emb rag.Embedder, store rag.VectorStore, settings *config.RAGSettings) (*rag.Retriever, error) {
	return rag.NewRetriever(emb, store, rag.RetrieverConfig{
		TopK:            settings.TopK,
		ScoreThreshold:  settings.ScoreThreshold,
		MaxContextChars: settings.MaxContextLength,
	})
}

// newEmbedder constructs the configured embedding backend.
func newEmbedder(ctx context.Context) (rag.Embedder, error) {
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	return emb, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
