package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voara-ai/voara-rag/internal/contextstore"
	"github.com/voara-ai/voara-rag/internal/rag"
)

// Query validation bounds for POST /api/rag/query.
const (
	// maxQueryLen is the maximum accepted query length in characters.
	maxQueryLen = 1000
	// maxTopK is the maximum accepted top_k value per request.
	maxTopK = 10
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry is the Prometheus registry metrics are registered into.
	// If nil, the default registry is used. Tests inject a fresh one.
	Registry *prometheus.Registry
	// Collection is the vector store collection name reported by /api/rag/stats.
	Collection string
	// EmbeddingBackend is the embedding backend name reported by /api/rag/stats.
	EmbeddingBackend string
	// EmbeddingModel is the embedding model name reported by /api/rag/stats.
	EmbeddingModel string
	// EmbeddingDimensions is the vector size reported by /api/rag/stats.
	EmbeddingDimensions int
	// ChunkSize is the ingestion chunk size reported by /api/rag/stats.
	ChunkSize int
	// ChunkOverlap is the ingestion chunk overlap reported by /api/rag/stats.
	ChunkOverlap int
	// TopK is the default passage count reported by /api/rag/stats.
	TopK int
	// ScoreThreshold is the similarity cutoff reported by /api/rag/stats.
	ScoreThreshold float32
}

// answerer is the interface handleQuery calls to run a retrieval.
// *rag.Retriever satisfies it; tests inject a fake.
type answerer interface {
	// Answer retrieves for query and assembles context, sources, and
	// passages. topK=0 uses the retriever's configured default.
	Answer(ctx context.Context, query string, topK int) (*rag.Answer, error)
}

// collectionInfoer is the slice of the vector store handleStats needs.
type collectionInfoer interface {
	// CollectionInfo returns collection metadata, or nil when the
	// collection does not exist.
	CollectionInfo(ctx context.Context) (*rag.CollectionInfo, error)
}

// Server is the HTTP server that exposes the retrieval engine.
type Server struct {
	// retriever answers /api/rag/query requests.
	retriever answerer
	// store provides collection metadata for /api/rag/stats.
	store collectionInfoer
	// contexts is the retrieval context store backing /api/rag/context.
	// May be nil, in which case the context endpoints return 404.
	contexts contextstore.Store
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/rag/query.
type queryRequest struct {
	// Query is the caller's question.
	Query string `json:"query"`
	// TopK overrides the configured number of passages (1–10). Zero uses
	// the server default.
	TopK int `json:"top_k,omitempty"`
}

// queryResult is one retrieved passage in a queryResponse.
type queryResult struct {
	// Text is the passage content.
	Text string `json:"text"`
	// Score is the cosine similarity score.
	Score float32 `json:"score"`
	// Source identifies the document the passage came from.
	Source string `json:"source,omitempty"`
	// Header is the section heading the passage sits under.
	Header string `json:"header,omitempty"`
}

// queryResponse is the JSON response for POST /api/rag/query.
type queryResponse struct {
	// Query echoes the question the retrieval ran for.
	Query string `json:"query"`
	// Context is the budgeted context string, empty when nothing matched.
	Context string `json:"context"`
	// Results holds the passages that made it into the context.
	Results []queryResult `json:"results"`
	// Sources lists the unique source identifiers in rank order.
	Sources []string `json:"sources,omitempty"`
	// RetrievalTimeMs is the server-side retrieval latency in milliseconds.
	RetrievalTimeMs int64 `json:"retrieval_time_ms"`
}

// statsResponse is the JSON response for GET /api/rag/stats.
type statsResponse struct {
	// Exists is false when the collection has never been created.
	Exists bool `json:"exists"`
	// Collection is the collection name.
	Collection string `json:"collection"`
	// PointsCount is the number of stored vectors, 0 when absent.
	PointsCount uint64 `json:"points_count"`
	// Status is the collection status, "not_found" when absent.
	Status string `json:"status"`
	// EmbeddingBackend is the configured embedding backend name.
	EmbeddingBackend string `json:"embedding_backend"`
	// EmbeddingModel is the configured embedding model name.
	EmbeddingModel string `json:"embedding_model"`
	// EmbeddingDimensions is the configured vector size.
	EmbeddingDimensions int `json:"embedding_dimensions"`
	// ChunkSize is the configured ingestion chunk size.
	ChunkSize int `json:"chunk_size"`
	// ChunkOverlap is the configured ingestion chunk overlap.
	ChunkOverlap int `json:"chunk_overlap"`
	// TopK is the configured default passage count.
	TopK int `json:"top_k"`
	// ScoreThreshold is the configured similarity cutoff.
	ScoreThreshold float32 `json:"score_threshold"`
}

// contextResponse is the JSON response for GET /api/rag/context.
type contextResponse struct {
	// Query is the question the snapshot was recorded for.
	Query string `json:"query"`
	// Context is the retrieved context, empty on a miss.
	Context string `json:"context"`
	// HasContext reports whether retrieval surfaced any passages.
	HasContext bool `json:"has_context"`
	// Timestamp is when the snapshot was recorded, RFC3339.
	Timestamp string `json:"timestamp"`
}
