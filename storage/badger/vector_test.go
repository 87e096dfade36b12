package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/docrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) storage.VectorIndex {
	t.Helper()
	idx, err := OpenVectorIndex("", true)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	require.NoError(t, idx.EnsureCollection(ctx, "text", 3))
	require.NoError(t, idx.EnsureCollection(ctx, "text", 3), "second call is idempotent")

	err := idx.EnsureCollection(ctx, "text", 4)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	assert.ErrorIs(t, idx.EnsureCollection(ctx, "image", 0), storage.ErrInvalidDimension)
}

func TestUpsert_Validation(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	err := idx.Upsert(ctx, "missing", storage.Entry{ID: "a", Vector: []float32{1, 0, 0}})
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	require.NoError(t, idx.EnsureCollection(ctx, "text", 3))
	err = idx.Upsert(ctx, "text", storage.Entry{ID: "a", Vector: []float32{1, 0}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestSearch_Ranking(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	require.NoError(t, idx.EnsureCollection(ctx, "text", 2))

	require.NoError(t, idx.Upsert(ctx, "text",
		storage.Entry{ID: "far", Vector: []float32{0, 1}, Text: "far"},
		storage.Entry{ID: "near", Vector: []float32{1, 0.1}, Text: "near"},
		storage.Entry{ID: "exact", Vector: []float32{2, 0}, Text: "exact", Metadata: map[string]string{"source": "a.pdf"}},
	))

	hits, err := idx.Search(ctx, "text", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"exact", "near", "far"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "a.pdf", hits[0].Metadata["source"])

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = idx.Search(ctx, "text", []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(ctx, "text", []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_TiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	require.NoError(t, idx.EnsureCollection(ctx, "image", 2))

	// IDs sort opposite to insertion order so key order cannot explain the result.
	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, idx.Upsert(ctx, "image", storage.Entry{ID: id, Vector: []float32{1, 1}}))
	}

	hits, err := idx.Search(ctx, "image", []float32{1, 1}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"z", "m", "a"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})

	// Re-upserting keeps the original position.
	require.NoError(t, idx.Upsert(ctx, "image", storage.Entry{ID: "z", Vector: []float32{1, 1}, Text: "updated"}))
	hits, err = idx.Search(ctx, "image", []float32{1, 1}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "z", hits[0].ID)
	assert.Equal(t, "updated", hits[0].Text)
}

func TestSearch_Filter(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	require.NoError(t, idx.EnsureCollection(ctx, "text", 2))

	require.NoError(t, idx.Upsert(ctx, "text",
		storage.Entry{ID: "1", Vector: []float32{1, 0}, Metadata: map[string]string{"source": "a.pdf"}},
		storage.Entry{ID: "2", Vector: []float32{1, 0}, Metadata: map[string]string{"source": "b.pdf"}},
		storage.Entry{ID: "3", Vector: []float32{1, 0}},
	))

	hits, err := idx.Search(ctx, "text", []float32{1, 0}, 10, &storage.Filter{Field: "source", Values: []string{"b.pdf"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", hits[0].ID)
}

func TestCount_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	require.NoError(t, idx.EnsureCollection(ctx, "text", 2))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := idx.Upsert(ctx, "text", storage.Entry{ID: fmt.Sprintf("e%d", i), Vector: []float32{float32(i), 1}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := idx.Count(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	_, err = idx.Count(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
