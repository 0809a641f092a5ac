package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload field names used for every indexed chunk.
const (
	payloadChunkID = "chunk_id"
	payloadContent = "content"
	payloadDocID   = "doc_id"
	payloadTitle   = "title"
)

// QdrantConfig holds connection parameters for a Qdrant vector index instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements VectorIndex backed by a Qdrant cosine collection.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig
}

// NewQdrantIndex creates a new QdrantIndex, ensuring the target collection
// exists (creating it with cosine distance if necessary), and returns a
// ready-to-use VectorIndex.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Upsert replaces all indexed chunks for the given document. The previous
// chunk set is deleted first (matched on the doc_id payload field) so a
// shrinking document never leaves orphaned chunks behind, then the new
// points are written with Wait so the data is durable before returning.
func (s *QdrantIndex) Upsert(ctx context.Context, documentID, title string, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("qdrant: %d chunks but %d vectors: %w", len(chunks), len(vectors), ErrIndexWrite)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadDocID, documentID),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete stale chunks for %s: %v: %w", documentID, err, ErrIndexWrite)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		chunkID := ChunkID(documentID, i)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(chunkID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadChunkID: chunkID,
				payloadContent: chunk,
				payloadDocID:   documentID,
				payloadTitle:   title,
			}),
		})
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %v: %w", err, ErrIndexWrite)
	}

	return nil
}

// Query performs a cosine similarity search and returns the top-k matches,
// closest first. Querying an empty collection returns an empty slice.
func (s *QdrantIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	limit := uint64(topK) //nolint:gosec // topK is validated by callers
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query failed: %v: %w", err, ErrIndexQuery)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		// Qdrant reports cosine similarity for cosine collections;
		// callers expect a distance.
		m := Match{Distance: 1 - r.Score}
		if p := r.Payload; p != nil {
			if v, ok := p[payloadChunkID]; ok {
				m.ChunkID = v.GetStringValue()
			}
			if v, ok := p[payloadContent]; ok {
				m.Text = v.GetStringValue()
			}
			if v, ok := p[payloadDocID]; ok {
				m.DocumentID = v.GetStringValue()
			}
			if v, ok := p[payloadTitle]; ok {
				m.Title = v.GetStringValue()
			}
		}
		matches = append(matches, m)
	}

	return matches, nil
}

// Ping calls the Qdrant HealthCheck RPC so the index can serve as a
// readiness probe. Returns nil if Qdrant is reachable.
func (s *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (s *QdrantIndex) Name() string { return "qdrant" }

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

// ChunkID returns the stable identifier for the i-th chunk of a document.
func ChunkID(documentID string, i int) string {
	return fmt.Sprintf("%s_%d", documentID, i)
}

// pointID derives a deterministic UUID from a chunk ID. Qdrant point IDs
// must be UUIDs or integers, so the human-readable chunk ID lives in the
// payload and a name-based UUID keeps re-ingestion idempotent.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}
