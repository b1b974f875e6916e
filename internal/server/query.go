package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voara-ai/voara-rag/internal/logging"
)

// handleQuery handles POST /api/rag/query. It validates the request,
// runs one retrieval pass, and returns the budgeted context together
// with the passages and sources behind it.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query exceeds %d characters", maxQueryLen))
		return
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be between 1 and %d", maxTopK))
		return
	}

	start := time.Now()
	ans, err := s.retriever.Answer(r.Context(), req.Query, req.TopK)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else if ans.Context == "" {
		outcome = "miss"
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if err != nil {
		log.Error("retrieval failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "retrieval failed")
		return
	}

	resp := queryResponse{
		Query:           req.Query,
		Context:         ans.Context,
		Results:         make([]queryResult, len(ans.Results)),
		Sources:         ans.Sources,
		RetrievalTimeMs: elapsed.Milliseconds(),
	}
	for i, res := range ans.Results {
		resp.Results[i] = queryResult{
			Text:   res.Text,
			Score:  res.Score,
			Source: res.Source,
			Header: res.Header,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStats handles GET /api/rag/stats. A missing collection is
// reported as exists=false rather than an error: a fresh deployment has
// simply not ingested anything yet.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := statsResponse{
		Collection:          s.cfg.Collection,
		Status:              "not_found",
		EmbeddingBackend:    s.cfg.EmbeddingBackend,
		EmbeddingModel:      s.cfg.EmbeddingModel,
		EmbeddingDimensions: s.cfg.EmbeddingDimensions,
		ChunkSize:           s.cfg.ChunkSize,
		ChunkOverlap:        s.cfg.ChunkOverlap,
		TopK:                s.cfg.TopK,
		ScoreThreshold:      s.cfg.ScoreThreshold,
	}

	info, err := s.store.CollectionInfo(r.Context())
	if err != nil {
		log.Error("collection info failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "vector store unavailable")
		return
	}
	if info != nil {
		resp.Exists = true
		resp.PointsCount = info.PointsCount
		resp.Status = info.Status
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON serializes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
