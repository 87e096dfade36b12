package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docrag/storage"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	collections map[string]uint64
	upserts     []*qdrant.UpsertPoints
	queries     []*qdrant.QueryPoints
	points      []*qdrant.ScoredPoint
	healthErr   error
	creates     int
}

func newFakeClient() *fakeClient {
	return &fakeClient{collections: map[string]uint64{}}
}

func (f *fakeClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeClient) GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error) {
	size, ok := f.collections[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: size, Distance: qdrant.Distance_Cosine}),
			},
		},
	}, nil
}

func (f *fakeClient) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	f.creates++
	f.collections[req.CollectionName] = req.GetVectorsConfig().GetParams().GetSize()
	return nil
}

func (f *fakeClient) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserts = append(f.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queries = append(f.queries, req)
	return f.points, nil
}

func (f *fakeClient) Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error) {
	return 7, nil
}

func (f *fakeClient) HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &qdrant.HealthCheckReply{}, nil
}

func (f *fakeClient) Close() error { return nil }

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	idx := newIndex(fc)

	require.NoError(t, idx.EnsureCollection(ctx, "docs_text", 3))
	require.NoError(t, idx.EnsureCollection(ctx, "docs_text", 3))
	assert.Equal(t, 1, fc.creates)
	assert.Equal(t, uint64(3), fc.collections["docs_text"])

	fc.collections["legacy"] = 768
	err := idx.EnsureCollection(ctx, "legacy", 1536)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	assert.ErrorIs(t, idx.EnsureCollection(ctx, "x", 0), storage.ErrInvalidDimension)
}

func TestUpsert_Payload(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	idx := newIndex(fc)
	require.NoError(t, idx.EnsureCollection(ctx, "docs_text", 2))

	err := idx.Upsert(ctx, "docs_text", storage.Entry{
		ID:       "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Vector:   []float32{0.1, 0.2},
		Text:     "hello",
		Metadata: map[string]string{"source": "a.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, fc.upserts, 1)

	pt := fc.upserts[0].Points[0]
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", pt.GetId().GetUuid())
	assert.Equal(t, "hello", pt.GetPayload()["text"].GetStringValue())
	assert.Equal(t, "a.pdf", pt.GetPayload()["metadata"].GetStructValue().GetFields()["source"].GetStringValue())

	err = idx.Upsert(ctx, "docs_text", storage.Entry{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Vector: []float32{1}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestSearch_MapsHitsAndFilter(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	fc.points = []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewIDUUID("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
			Score: 0.9,
			Payload: qdrant.NewValueMap(map[string]any{
				"text":     "chart of revenue",
				"metadata": map[string]any{"source": "b.pdf", "page": "3"},
			}),
		},
	}
	idx := newIndex(fc)

	hits, err := idx.Search(ctx, "docs_image", []float32{1, 0}, 5, &storage.Filter{Field: "source", Values: []string{"b.pdf"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chart of revenue", hits[0].Text)
	assert.Equal(t, "3", hits[0].Metadata["page"])
	assert.InDelta(t, 0.9, hits[0].Score, 1e-6)

	require.Len(t, fc.queries, 1)
	assert.Equal(t, uint64(5*tieOverfetch), fc.queries[0].GetLimit())
	require.NotNil(t, fc.queries[0].GetFilter())
	assert.Len(t, fc.queries[0].GetFilter().GetMust(), 1)

	hits, err = idx.Search(ctx, "docs_image", []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Len(t, fc.queries, 1, "zero limit does not reach the server")
}

func TestUpsert_SequenceIncreases(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	idx := newIndex(fc)
	require.NoError(t, idx.EnsureCollection(ctx, "docs_text", 1))

	require.NoError(t, idx.Upsert(ctx, "docs_text",
		storage.Entry{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c1", Vector: []float32{1}},
		storage.Entry{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c2", Vector: []float32{1}},
	))
	require.NoError(t, idx.Upsert(ctx, "docs_text",
		storage.Entry{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c3", Vector: []float32{1}},
	))

	var seqs []int64
	for _, up := range fc.upserts {
		for _, pt := range up.Points {
			seqs = append(seqs, pt.GetPayload()["seq"].GetIntegerValue())
		}
	}
	require.Len(t, seqs, 3)
	assert.Less(t, seqs[0], seqs[1])
	assert.Less(t, seqs[1], seqs[2])
}

func TestSearch_TiesOrderedByInsertion(t *testing.T) {
	ctx := context.Background()
	point := func(id string, score float32, seq int64) *qdrant.ScoredPoint {
		return &qdrant.ScoredPoint{
			Id:      qdrant.NewIDUUID(id),
			Score:   score,
			Payload: qdrant.NewValueMap(map[string]any{"text": id, "seq": seq}),
		}
	}
	fc := newFakeClient()
	// Server order scrambles the tied points.
	fc.points = []*qdrant.ScoredPoint{
		point("6ba7b810-9dad-11d1-80b4-00c04fd430c3", 0.8, 30),
		point("6ba7b810-9dad-11d1-80b4-00c04fd430c9", 0.95, 90),
		point("6ba7b810-9dad-11d1-80b4-00c04fd430c1", 0.8, 10),
		point("6ba7b810-9dad-11d1-80b4-00c04fd430c2", 0.8, 20),
	}
	idx := newIndex(fc)

	hits, err := idx.Search(ctx, "docs_text", []float32{1}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c9", hits[0].ID)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c1", hits[1].ID)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c2", hits[2].ID)
}

func TestPingAndCount(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	idx := newIndex(fc)

	assert.NoError(t, idx.Ping(ctx))
	n, err := idx.Count(ctx, "docs_text")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	fc.healthErr = errors.New("connection refused")
	assert.ErrorContains(t, idx.Ping(ctx), "connection refused")
}
