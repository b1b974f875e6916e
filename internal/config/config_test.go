package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: ollama
  model: nomic-embed-text
qdrant:
  host: qdrant.internal
  port: 6334
  collection: voara_kb
rag:
  chunk_size: 800
  top_k: 5
  score_threshold: 0.6
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"CHUNK_SIZE", "RAG_TOP_K", "RAG_SCORE_THRESHOLD",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"EMBEDDING_PROVIDER":  "ollama",
		"EMBEDDING_MODEL":     "nomic-embed-text",
		"QDRANT_HOST":         "qdrant.internal",
		"QDRANT_PORT":         "6334",
		"QDRANT_COLLECTION":   "voara_kb",
		"CHUNK_SIZE":          "800",
		"RAG_TOP_K":           "5",
		"RAG_SCORE_THRESHOLD": "0.6",
		"LOG_LEVEL":           "debug",
		"LOG_FORMAT":          "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("EMBEDDING_PROVIDER", "gemini")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("EMBEDDING_PROVIDER"); got != "gemini" {
		t.Errorf("EMBEDDING_PROVIDER: expected env override %q, got %q", "gemini", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestSettings_Defaults(t *testing.T) {
	for _, k := range []string{"CHUNK_SIZE", "CHUNK_OVERLAP", "RAG_TOP_K", "RAG_SCORE_THRESHOLD", "RAG_MAX_CONTEXT_LENGTH"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	s, err := Settings()
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if s.ChunkSize != DefaultChunkSize || s.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("chunking defaults wrong: %+v", s)
	}
	if s.TopK != DefaultTopK || s.ScoreThreshold != DefaultScoreThreshold {
		t.Errorf("retrieval defaults wrong: %+v", s)
	}
	if s.MaxContextLength != DefaultMaxContextLength {
		t.Errorf("context budget default wrong: %+v", s)
	}
}

func TestSettings_Validation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"overlap >= size", "CHUNK_OVERLAP", "1000"},
		{"negative top_k", "RAG_TOP_K", "-1"},
		{"threshold above 1", "RAG_SCORE_THRESHOLD", "1.5"},
		{"zero context budget", "RAG_MAX_CONTEXT_LENGTH", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Settings(); err == nil {
				t.Errorf("expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.5, "0.5"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
