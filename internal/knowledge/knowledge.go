// Package knowledge exposes the retrieval pipeline as a conversational
// capability: a Searcher that turns retrieval outcomes into speakable
// text, an Eino tool the voice agent can call mid-conversation, and a
// Watcher that runs searches in the background while the caller keeps
// talking. Every search also records its outcome in the context store
// for post-call inspection.
package knowledge

import (
	"context"

	"github.com/voara-ai/voara-rag/internal/contextstore"
	"github.com/voara-ai/voara-rag/internal/logging"
)

// Caller-facing fallback lines. These are spoken to the user by the
// voice agent, so they must stay conversational rather than technical.
const (
	// unavailableMessage is returned when no retrieval engine is configured.
	unavailableMessage = "I apologize, but I'm unable to access the knowledge base at the moment. Please try again."
	// noResultsMessage is returned when retrieval succeeds but surfaces nothing.
	noResultsMessage = "No specific information found in the knowledge base for this query."
	// degradedMessage is returned when the retrieval backend errors.
	degradedMessage = "I encountered an issue searching the knowledge base. Let me try to help you with what I know."
)

// ContextRetriever is the slice of the retriever the Searcher needs.
type ContextRetriever interface {
	// RetrieveContext returns a formatted context block for the query, or
	// empty when nothing relevant is found.
	RetrieveContext(ctx context.Context, query string, includeMetadata bool) (string, error)
}

// Searcher answers knowledge base queries with text safe to hand
// directly to the voice agent. It never returns an error: failures
// degrade to an apologetic line so the conversation can continue.
type Searcher struct {
	// retriever produces the context block for a query.
	retriever ContextRetriever
	// store records each search outcome. May be nil, in which case
	// recording is skipped.
	store contextstore.Store
	// includeMetadata controls whether passages carry source and section
	// markers.
	includeMetadata bool
}

// NewSearcher constructs a Searcher. store may be nil to disable
// context recording.
func NewSearcher(retriever ContextRetriever, store contextstore.Store, includeMetadata bool) *Searcher {
	return &Searcher{
		retriever:       retriever,
		store:           store,
		includeMetadata: includeMetadata,
	}
}

// SearchKnowledgeBase retrieves context for the query and returns text
// suitable for the agent to speak or reason over. The outcome is also
// recorded in the context store: the retrieved context on a hit, empty
// on a miss.
func (s *Searcher) SearchKnowledgeBase(ctx context.Context, query string) string {
	log := logging.FromContext(ctx)

	if s.retriever == nil {
		log.Warn("knowledge base search skipped: no retriever configured")
		return unavailableMessage
	}

	text, err := s.retriever.RetrieveContext(ctx, query, s.includeMetadata)
	if err != nil {
		log.Error("knowledge base search failed", "error", err)
		return degradedMessage
	}

	// Recording is best effort: a failed snapshot write must not cost the
	// caller the context that was just retrieved.
	if s.store != nil {
		if err := s.store.Set(ctx, query, text); err != nil {
			log.Error("failed to record retrieval context", "error", err)
		}
	}

	if text == "" {
		log.Info("knowledge base search found nothing", "query_len", len(query))
		return noResultsMessage
	}

	log.Info("knowledge base search succeeded", "query_len", len(query), "context_len", len(text))
	return text
}
