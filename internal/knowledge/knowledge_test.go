package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voara-ai/voara-rag/internal/contextstore"
)

// fakeRetriever returns a canned context block or error.
type fakeRetriever struct {
	text string
	err  error
	// block, when non-nil, delays the retrieval until closed or the
	// context is cancelled.
	block chan struct{}
}

func (f *fakeRetriever) RetrieveContext(ctx context.Context, _ string, _ bool) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func openTestStore(t *testing.T) *contextstore.SQLiteStore {
	t.Helper()
	s, err := contextstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Searcher_ReturnsRetrievedContext(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	s := NewSearcher(&fakeRetriever{text: "Pricing starts at $29/month."}, store, false)

	got := s.SearchKnowledgeBase(context.Background(), "what is the pricing?")
	if got != "Pricing starts at $29/month." {
		t.Errorf("got %q", got)
	}

	e, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if e == nil || !e.HasContext || e.Query != "what is the pricing?" {
		t.Errorf("snapshot not recorded: %+v", e)
	}
}

func Test_Searcher_NoResultsFallback(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	s := NewSearcher(&fakeRetriever{text: ""}, store, false)

	got := s.SearchKnowledgeBase(context.Background(), "anything about quantum physics?")
	if got != noResultsMessage {
		t.Errorf("got %q, want no-results fallback", got)
	}

	e, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if e == nil || e.HasContext {
		t.Errorf("miss should be recorded with empty context: %+v", e)
	}
}

func Test_Searcher_BackendErrorFallback(t *testing.T) {
	t.Parallel()
	s := NewSearcher(&fakeRetriever{err: errors.New("qdrant unreachable")}, nil, false)

	got := s.SearchKnowledgeBase(context.Background(), "hello")
	if got != degradedMessage {
		t.Errorf("got %q, want degraded fallback", got)
	}
}

func Test_Searcher_NoRetrieverFallback(t *testing.T) {
	t.Parallel()
	s := NewSearcher(nil, nil, false)

	got := s.SearchKnowledgeBase(context.Background(), "hello")
	if got != unavailableMessage {
		t.Errorf("got %q, want unavailable fallback", got)
	}
}

// failingStore rejects every snapshot write.
type failingStore struct{}

func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }
func (failingStore) Latest(context.Context) (*contextstore.Entry, error) {
	return nil, nil
}
func (failingStore) Reset(context.Context) error { return nil }
func (failingStore) Close() error                { return nil }

func Test_Searcher_RecordingFailureKeepsContext(t *testing.T) {
	t.Parallel()
	s := NewSearcher(&fakeRetriever{text: "Pricing starts at $29/month."}, failingStore{}, false)

	got := s.SearchKnowledgeBase(context.Background(), "what is the pricing?")
	if got != "Pricing starts at $29/month." {
		t.Errorf("retrieved context lost to a recording failure: got %q", got)
	}
}

func Test_Searcher_NilStoreSkipsRecording(t *testing.T) {
	t.Parallel()
	s := NewSearcher(&fakeRetriever{text: "some context"}, nil, false)

	if got := s.SearchKnowledgeBase(context.Background(), "q"); got != "some context" {
		t.Errorf("got %q", got)
	}
}

func Test_Tool_InvokableRun(t *testing.T) {
	t.Parallel()
	tool := NewTool(NewSearcher(&fakeRetriever{text: "tool context"}, nil, false))

	args, _ := json.Marshal(map[string]string{"query": "what do you offer?"})
	out, err := tool.InvokableRun(context.Background(), string(args))
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if out != "tool context" {
		t.Errorf("got %q", out)
	}
}

func Test_Tool_RejectsMissingQuery(t *testing.T) {
	t.Parallel()
	tool := NewTool(NewSearcher(&fakeRetriever{}, nil, false))

	if _, err := tool.InvokableRun(context.Background(), `{}`); err == nil {
		t.Error("expected error for missing query")
	}
	if _, err := tool.InvokableRun(context.Background(), `not json`); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func Test_Tool_Info(t *testing.T) {
	t.Parallel()
	tool := NewTool(NewSearcher(&fakeRetriever{}, nil, false))

	info, err := tool.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != "search_knowledge_base" {
		t.Errorf("name: got %q", info.Name)
	}
	if !strings.Contains(info.Desc, "knowledge base") {
		t.Errorf("description too generic: %q", info.Desc)
	}
}

func Test_Watcher_DeliversResult(t *testing.T) {
	t.Parallel()
	w := NewWatcher(NewSearcher(&fakeRetriever{text: "watched context"}, nil, false))
	defer w.Stop()

	w.Trigger(context.Background(), "q1")

	select {
	case res := <-w.Results():
		if res.Query != "q1" || res.Text != "watched context" {
			t.Errorf("got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

// slowFirstRetriever blocks the stale query until released; every other
// query answers immediately.
type slowFirstRetriever struct {
	block chan struct{}
}

func (r *slowFirstRetriever) RetrieveContext(ctx context.Context, query string, _ bool) (string, error) {
	if query == "stale question" {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "answer to " + query, nil
}

func Test_Watcher_NewerTriggerSupersedesOlder(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	w := NewWatcher(NewSearcher(&slowFirstRetriever{block: block}, nil, false))
	defer w.Stop()

	// The first search parks until the second trigger cancels it.
	w.Trigger(context.Background(), "stale question")
	w.Trigger(context.Background(), "current question")
	close(block)

	select {
	case res := <-w.Results():
		if res.Query != "current question" {
			t.Errorf("stale result delivered: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func Test_Watcher_StopCancelsInFlight(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	w := NewWatcher(NewSearcher(&fakeRetriever{text: "never delivered", block: block}, nil, false))

	w.Trigger(context.Background(), "q")
	w.Stop()
	close(block)

	select {
	case res := <-w.Results():
		t.Errorf("result delivered after Stop: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}
