package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voara-ai/voara-rag/internal/logging"
)

// handleContext handles GET /api/rag/context. It returns the most
// recent retrieval snapshot, 404 when no search has been recorded yet
// or context persistence is disabled.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.contexts == nil {
		writeError(w, http.StatusNotFound, "context persistence disabled")
		return
	}

	entry, err := s.contexts.Latest(r.Context())
	if err != nil {
		log.Error("context lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "context lookup failed")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no retrieval context recorded")
		return
	}

	writeJSON(w, http.StatusOK, contextResponse{
		Query:      entry.Query,
		Context:    entry.Context,
		HasContext: entry.HasContext,
		Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339),
	})
}

// handleContextReset handles POST /api/rag/context/reset. Typically
// called between conversations so a new call starts with a clean slate.
func (s *Server) handleContextReset(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.contexts == nil {
		writeError(w, http.StatusNotFound, "context persistence disabled")
		return
	}

	if err := s.contexts.Reset(r.Context()); err != nil {
		log.Error("context reset failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "context reset failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
