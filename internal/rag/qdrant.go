package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// Payload field names used for chunk metadata in Qdrant.
const (
	payloadText     = "text"
	payloadSource   = "source"
	payloadHeader   = "header"
	payloadPosition = "position"
)

// QdrantConfig holds connection parameters for a Qdrant vector store
// instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
// One gRPC client is created per store and shared by all callers; the
// qdrant client supports concurrent requests, so no locking is needed
// around the calls themselves.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig

	// closeOnce makes Close idempotent.
	closeOnce sync.Once

	// closeErr is the error returned by the first Close call.
	closeErr error
}

// NewQdrantStore creates a QdrantStore connected to the configured
// instance. The collection is not created here — callers decide when to
// EnsureCollection, since the dimension is only known once an embedder
// is resolved.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name must not be empty: %w", ErrStore)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w: %v", ErrStore, err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Client exposes the underlying gRPC client for health probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// CollectionName returns the configured collection name.
func (s *QdrantStore) CollectionName() string { return s.cfg.Collection }

// EnsureCollection creates the collection sized for dimension if absent
// and returns whether it already existed. When the collection exists
// with a different vector size, ErrDimensionMismatch is returned —
// changing dimension requires recreating the collection, never a silent
// migration.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dimension int) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return false, fmt.Errorf("qdrant: collection existence check: %w: %v", ErrStore, err)
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.cfg.Collection)
		if err != nil {
			return true, fmt.Errorf("qdrant: collection info: %w: %v", ErrStore, err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && size != uint64(dimension) {
			return true, fmt.Errorf("qdrant: collection %q has dimension %d, want %d: %w",
				s.cfg.Collection, size, dimension, ErrDimensionMismatch)
		}
		return true, nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return false, fmt.Errorf("qdrant: failed to create collection %q: %w: %v", s.cfg.Collection, ErrStore, err)
	}

	return false, nil
}

// Upsert stores the given points, replacing any existing ids. Qdrant
// applies the batch as one operation; on error the whole batch must be
// treated as unconfirmed by the caller.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qpoints = append(qpoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadText:     p.Payload.Text,
				payloadSource:   p.Payload.Source,
				payloadHeader:   p.Payload.Header,
				payloadPosition: int64(p.Payload.Position),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert of %d points: %w: %v", len(points), ErrStore, err)
	}

	return nil
}

// Search performs a cosine similarity search and returns at most topK
// matches with score >= scoreThreshold, ordered by descending score.
// Qdrant breaks equal-score ties by internal point id (insertion
// recency); other backends may order ties differently.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int, scoreThreshold float32) ([]Result, error) {
	limit := uint64(topK)
	query := &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold != 0 {
		query.ScoreThreshold = &scoreThreshold
	}

	scored, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w: %v", ErrStore, err)
	}

	results := make([]Result, 0, len(scored))
	for _, sp := range scored {
		r := Result{Score: sp.GetScore()}
		if p := sp.GetPayload(); p != nil {
			if v, ok := p[payloadText]; ok {
				r.Text = v.GetStringValue()
			}
			if v, ok := p[payloadSource]; ok {
				r.Source = v.GetStringValue()
			}
			if v, ok := p[payloadHeader]; ok {
				r.Header = v.GetStringValue()
			}
		}
		results = append(results, r)
	}

	return results, nil
}

// CollectionInfo returns the point count and status of the collection,
// or (nil, nil) when the collection does not exist.
func (s *QdrantStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: collection existence check: %w: %v", ErrStore, err)
	}
	if !exists {
		return nil, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: collection info: %w: %v", ErrStore, err)
	}

	return &CollectionInfo{
		PointsCount: info.GetPointsCount(),
		Status:      info.GetStatus().String(),
	}, nil
}

// DeleteBySource removes every point whose payload source matches the
// given identifier. Called by the ingestion pipeline before re-indexing
// a document so stale chunks from a previous, longer version cannot
// linger.
func (s *QdrantStore) DeleteBySource(ctx context.Context, source string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadSource, source),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete by source %q: %w: %v", source, ErrStore, err)
	}
	return nil
}

// Close closes the underlying gRPC connection. Subsequent calls return
// the first call's result.
func (s *QdrantStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
