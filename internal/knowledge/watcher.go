package knowledge

import (
	"context"
	"sync"
)

// SearchResult is one completed background search.
type SearchResult struct {
	// Query is the question the search was triggered with.
	Query string
	// Text is the speakable outcome from the Searcher.
	Text string
}

// Watcher runs knowledge base searches in the background so the
// conversation loop never blocks on retrieval. Each Trigger cancels any
// search still in flight: only the most recent question matters to a
// live call. Completed results are delivered on the Results channel,
// where a newer result replaces an unconsumed older one.
type Watcher struct {
	// searcher performs the actual lookups.
	searcher *Searcher

	// results carries completed searches, capacity 1. A stale result
	// that was never read is dropped when a newer one lands.
	results chan SearchResult

	// mu guards cancel.
	mu sync.Mutex
	// cancel stops the in-flight search, nil when idle.
	cancel context.CancelFunc
}

// NewWatcher constructs a Watcher around the given Searcher.
func NewWatcher(searcher *Searcher) *Watcher {
	return &Watcher{
		searcher: searcher,
		results:  make(chan SearchResult, 1),
	}
}

// Results returns the channel completed searches are delivered on.
func (w *Watcher) Results() <-chan SearchResult {
	return w.results
}

// Trigger starts a background search for query, cancelling any search
// still in flight. The result arrives on Results unless the search is
// superseded or stopped first.
func (w *Watcher) Trigger(ctx context.Context, query string) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	go func() {
		text := w.searcher.SearchKnowledgeBase(searchCtx, query)
		if searchCtx.Err() != nil {
			return
		}
		// Replace an unconsumed stale result rather than blocking.
		for {
			select {
			case w.results <- SearchResult{Query: query, Text: text}:
				return
			default:
				select {
				case <-w.results:
				default:
				}
			}
		}
	}()
}

// Stop cancels any in-flight search. The Watcher may be reused with
// Trigger afterwards.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
