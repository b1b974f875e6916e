// Package config provides YAML-based configuration for voararag.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. VOARARAG_CONFIG environment variable
//  3. ~/.voararag/config.yaml
//  4. ./voararag.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// RAG configures chunking and retrieval behavior.
	RAG RAGConfig `yaml:"rag"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Context configures retrieval context persistence.
	Context ContextConfig `yaml:"context"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (gemini, openai, ollama).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// GoogleAPIKey is the Google AI key for the gemini backend.
	// Prefer env var GOOGLE_API_KEY.
	GoogleAPIKey string `yaml:"google_api_key"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// RAGConfig holds chunking and retrieval settings.
type RAGConfig struct {
	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the number of characters shared between consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// TopK is the default number of passages returned per query.
	TopK int `yaml:"top_k"`
	// ScoreThreshold is the minimum similarity score for a passage to count.
	ScoreThreshold float32 `yaml:"score_threshold"`
	// MaxContextLength is the character budget for assembled context.
	MaxContextLength int `yaml:"max_context_length"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var VOARARAG_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// ContextConfig holds retrieval context persistence settings.
type ContextConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Embedding.GoogleAPIKey }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.RAG.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.RAG.ChunkOverlap) }},
	{"RAG_TOP_K", func(c *Config) string { return intStr(c.RAG.TopK) }},
	{"RAG_SCORE_THRESHOLD", func(c *Config) string { return float32Str(c.RAG.ScoreThreshold) }},
	{"RAG_MAX_CONTEXT_LENGTH", func(c *Config) string { return intStr(c.RAG.MaxContextLength) }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"VOARARAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"VOARARAG_CONTEXT_DB", func(c *Config) string { return c.Context.DBPath }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// RAGSettings is the resolved, validated chunking and retrieval
// configuration, read from the environment after Load has layered any
// YAML file on top of the defaults.
type RAGSettings struct {
	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int
	// ChunkOverlap is the number of characters shared between consecutive chunks.
	ChunkOverlap int
	// TopK is the default number of passages returned per query.
	TopK int
	// ScoreThreshold is the minimum similarity score for a passage to count.
	ScoreThreshold float32
	// MaxContextLength is the character budget for assembled context.
	MaxContextLength int
}

// Default retrieval settings, matching the values the knowledge base
// was tuned with.
const (
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 100
	DefaultTopK             = 3
	DefaultScoreThreshold   = 0.5
	DefaultMaxContextLength = 4000
)

// Settings resolves RAGSettings from the environment, applying defaults
// for unset values and validating the result.
func Settings() (*RAGSettings, error) {
	s := &RAGSettings{
		ChunkSize:        envInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:     envInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:             envInt("RAG_TOP_K", DefaultTopK),
		ScoreThreshold:   envFloat32("RAG_SCORE_THRESHOLD", DefaultScoreThreshold),
		MaxContextLength: envInt("RAG_MAX_CONTEXT_LENGTH", DefaultMaxContextLength),
	}

	if s.ChunkSize <= 0 {
		return nil, fmt.Errorf("config: CHUNK_SIZE must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return nil, fmt.Errorf("config: CHUNK_OVERLAP must be in [0, %d), got %d", s.ChunkSize, s.ChunkOverlap)
	}
	if s.TopK <= 0 {
		return nil, fmt.Errorf("config: RAG_TOP_K must be positive, got %d", s.TopK)
	}
	if s.ScoreThreshold < 0 || s.ScoreThreshold > 1 {
		return nil, fmt.Errorf("config: RAG_SCORE_THRESHOLD must be in [0, 1], got %v", s.ScoreThreshold)
	}
	if s.MaxContextLength <= 0 {
		return nil, fmt.Errorf("config: RAG_MAX_CONTEXT_LENGTH must be positive, got %d", s.MaxContextLength)
	}
	return s, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("VOARARAG_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".voararag", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("voararag.yaml"); err == nil {
		return "voararag.yaml"
	}

	return ""
}

// envInt returns the integer value of the named env var, or fallback
// when unset or unparseable.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envFloat32 returns the float value of the named env var, or fallback
// when unset or unparseable.
func envFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
