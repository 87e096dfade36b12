package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/cache"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/index"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

// flakyIndex wraps a VectorIndex and fails searches while broken is set.
type flakyIndex struct {
	storage.VectorIndex
	broken   atomic.Bool
	searches atomic.Int64
}

func (f *flakyIndex) Search(ctx context.Context, collection string, vector []float32, limit int, filter *storage.Filter) ([]storage.Hit, error) {
	f.searches.Add(1)
	if f.broken.Load() {
		return nil, errors.New("index unreachable")
	}
	return f.VectorIndex.Search(ctx, collection, vector, limit, filter)
}

// recordingMonitor captures hook calls.
type recordingMonitor struct {
	mu        sync.Mutex
	started   bool
	cacheHit  bool
	modality  []core.ItemType
	finished  *core.CachedSearchResult
	dimension int
}

func (m *recordingMonitor) Start(Request) { m.started = true }
func (m *recordingMonitor) CacheHit(*core.CachedSearchResult) { m.cacheHit = true }
func (m *recordingMonitor) AfterEmbedding(dim int, _ time.Duration) { m.dimension = dim }
func (m *recordingMonitor) AfterModalitySearch(t core.ItemType, _ []core.SearchResultItem, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modality = append(m.modality, t)
}
func (m *recordingMonitor) Finish(r *core.CachedSearchResult) { m.finished = r }

type fixture struct {
	searcher *Searcher
	index    *flakyIndex
	mm       *index.Multimodal
	embedder *mock.MockEmbedder
}

func newFixture(t *testing.T, withCache bool, opts ...Option) *fixture {
	t.Helper()
	vectors, store, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		vectors.Close()
		store.Close()
	})

	flaky := &flakyIndex{VectorIndex: vectors}
	mm, err := index.New(flaky, testDim)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedderWithDimension(testDim)
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockImageDescriber())

	base := []Option{WithRetry(2, 0)}
	if withCache {
		sc, err := cache.NewSearchCache(store)
		require.NoError(t, err)
		base = append(base, WithCache(sc))
	}
	s, err := NewSearcher(mm, provider, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Release)

	f := &fixture{searcher: s, index: flaky, mm: mm, embedder: embedder}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	texts := []struct{ file, text string }{
		{"guide.txt", "pipeline configuration"},
		{"guide.txt", "retry delays for embedding calls"},
		{"notes.txt", "quarterly revenue summary"},
	}
	for i, tx := range texts {
		loc := index.Location{Source: "/up/" + tx.file, Filename: tx.file, JobID: "job-" + tx.file}
		require.NoError(t, f.mm.Write(ctx, core.ItemTypeText, index.TextEntry(i+1, mock.Vector(tx.text, testDim), tx.text, loc)))
	}
	loc := index.Location{Source: "/up/deck.pptx", Filename: "deck.pptx", JobID: "job-deck", Page: 2, TotalPages: 5}
	desc := "diagram of the pipeline configuration stages"
	require.NoError(t, f.mm.Write(ctx, core.ItemTypeImage, index.ImageEntry(1, mock.Vector(desc, testDim), desc, loc,
		index.ImageInfo{ID: "img-1", Path: "/up/deck.pptx#image-1", Width: 1024, Height: 768, Number: 1, Kind: "embedded"})))
}

func TestNewSearcher(t *testing.T) {
	backend, err := badger.OpenVectorIndex("", true)
	require.NoError(t, err)
	defer backend.Close()
	mm, err := index.New(backend, testDim)
	require.NoError(t, err)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(mm, provider)
		require.NoError(t, err)
		defer s.Release()
		assert.Equal(t, DefaultLimits(), s.limits)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(mm, provider, WithLogger(nil), WithWorkers(4))
		require.NoError(t, err)
		s.Release()
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, provider)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(mm, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("bad limits", func(t *testing.T) {
		_, err := NewSearcher(mm, provider, WithLimits(Limits{MinQueryLength: 5, MaxQueryLength: 2}))
		assert.Error(t, err)
	})
}

func TestSearch_MissThenHit(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, err := f.searcher.Search(ctx, Request{Query: "pipeline configuration"})
	require.NoError(t, err)
	require.False(t, first.HasError, first.ErrorMessage)
	assert.False(t, first.WasCached)
	require.NotEmpty(t, first.TextResults)
	assert.Equal(t, "pipeline configuration", first.TextResults[0].Content)
	assert.Len(t, first.ImageResults, 1)
	assert.Equal(t, len(first.TextResults), first.TextMetrics.Count)
	assert.InDelta(t, 1.0, first.TextMetrics.MaxScore, 1e-5)
	assert.GreaterOrEqual(t, first.TextMetrics.MaxScore, first.TextMetrics.AverageScore)
	assert.GreaterOrEqual(t, first.TextMetrics.AverageScore, first.TextMetrics.MinScore)
	embeds := f.embedder.CallCount()
	searches := f.index.searches.Load()

	second, err := f.searcher.Search(ctx, Request{Query: "  Pipeline   CONFIGURATION "})
	require.NoError(t, err)
	assert.True(t, second.WasCached)
	assert.Equal(t, first.TextResults, second.TextResults)
	assert.Equal(t, first.ImageResults, second.ImageResults)
	assert.Equal(t, first.TextMetrics, second.TextMetrics)
	assert.Equal(t, first.ImageMetrics, second.ImageMetrics)
	assert.Equal(t, embeds, f.embedder.CallCount(), "a hit does not embed")
	assert.Equal(t, searches, f.index.searches.Load(), "a hit does not search")
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"too short", Request{Query: "ab"}},
		{"blank", Request{Query: "     "}},
		{"too long", Request{Query: strings.Repeat("x", 1001)}},
		{"control characters", Request{Query: "pipe\x00line"}},
		{"negative limit", Request{Query: "pipeline", TextLimit: -1}},
		{"text limit above max", Request{Query: "pipeline", TextLimit: 6}},
		{"image limit above max", Request{Query: "pipeline", ImageLimit: 4}},
		{"empty source", Request{Query: "pipeline", Sources: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := &recordingMonitor{}
			result, err := f.searcher.SearchWithMonitor(ctx, tt.req, monitor)
			assert.ErrorIs(t, err, ErrInvalidQuery)
			assert.Nil(t, result)
			assert.False(t, monitor.started)
		})
	}
	assert.Equal(t, 0, f.embedder.CallCount())
	assert.Equal(t, int64(0), f.index.searches.Load())
}

func TestSearch_CombinedLimit(t *testing.T) {
	f := newFixture(t, false, WithLimits(Limits{
		MaxTextResults: 3, MaxImageResults: 3, MaxMultimodalResults: 6, MinQueryLength: 1, MaxQueryLength: 100,
	}))
	_, err := f.searcher.Search(context.Background(), Request{Query: "q", TextLimit: 4, ImageLimit: 2})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	res, err := f.searcher.Search(context.Background(), Request{Query: "q", TextLimit: 3, ImageLimit: 3})
	require.NoError(t, err)
	assert.False(t, res.HasError)
}

func TestSearch_DefaultLimitsFitCombinedCap(t *testing.T) {
	backend, err := badger.OpenVectorIndex("", true)
	require.NoError(t, err)
	defer backend.Close()
	mm, err := index.New(backend, testDim)
	require.NoError(t, err)

	_, err = NewSearcher(mm, mock.NewMockProvider(), WithLimits(Limits{
		MaxTextResults: 10, MaxImageResults: 5, MaxMultimodalResults: 8, MinQueryLength: 1, MaxQueryLength: 100,
	}))
	assert.ErrorContains(t, err, "exceed combined limit 8")

	f := newFixture(t, false, WithLimits(Limits{
		MaxTextResults: 5, MaxImageResults: 3, MaxMultimodalResults: 8, MinQueryLength: 1, MaxQueryLength: 100,
	}))
	res, err := f.searcher.Search(context.Background(), Request{Query: "pipeline configuration"})
	require.NoError(t, err)
	assert.False(t, res.HasError)
}

func TestSearch_TextOnlyAndSources(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	monitor := &recordingMonitor{}

	res, err := f.searcher.SearchWithMonitor(ctx, Request{Query: "pipeline configuration", TextOnly: true, Sources: []string{"notes.txt"}}, monitor)
	require.NoError(t, err)
	assert.Empty(t, res.ImageResults)
	require.Len(t, res.TextResults, 1)
	assert.Equal(t, "notes.txt", res.TextResults[0].Filename)
	assert.Equal(t, []core.ItemType{core.ItemTypeText}, monitor.modality)
	assert.Equal(t, testDim, monitor.dimension)
	assert.Same(t, res, monitor.finished)

	unfiltered, err := f.searcher.Search(ctx, Request{Query: "pipeline configuration", TextOnly: true})
	require.NoError(t, err)
	assert.False(t, unfiltered.WasCached, "filters are part of the cache key")
	assert.Len(t, unfiltered.TextResults, 3)
}

func TestSearch_IndexFailureNotCached(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.index.broken.Store(true)
	res, err := f.searcher.Search(ctx, Request{Query: "pipeline configuration"})
	require.NoError(t, err)
	assert.True(t, res.HasError)
	assert.Contains(t, res.ErrorMessage, "index unreachable")
	assert.True(t, res.IsEmpty())

	f.index.broken.Store(false)
	res, err = f.searcher.Search(ctx, Request{Query: "pipeline configuration"})
	require.NoError(t, err)
	assert.False(t, res.HasError)
	assert.False(t, res.WasCached)
	assert.NotEmpty(t, res.TextResults)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	f := newFixture(t, true)
	f.embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("model offline")
	}

	res, err := f.searcher.Search(context.Background(), Request{Query: "pipeline configuration"})
	require.NoError(t, err)
	assert.True(t, res.HasError)
	assert.Contains(t, res.ErrorMessage, "embed query: retries exhausted after 2 attempts: model offline")
	assert.Equal(t, 2, f.embedder.CallCount())
	assert.Equal(t, int64(0), f.index.searches.Load())
}

func TestSearch_WithoutCache(t *testing.T) {
	f := newFixture(t, false, WithLogger(slog.Default()))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := f.searcher.Search(ctx, Request{Query: "quarterly revenue summary"})
		require.NoError(t, err)
		assert.False(t, res.WasCached)
		assert.Equal(t, "quarterly revenue summary", res.TextResults[0].Content)
	}
}

func TestSearch_EmbedsTheCachedQueryText(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var mu sync.Mutex
	var embedded []string
	f.embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		mu.Lock()
		embedded = append(embedded, text)
		mu.Unlock()
		return mock.Vector(text, testDim), nil
	}

	res, err := f.searcher.Search(ctx, Request{Query: "  quarterly \n revenue\tsummary "})
	require.NoError(t, err)
	assert.False(t, res.WasCached)
	require.NotEmpty(t, res.TextResults)
	assert.Equal(t, "quarterly revenue summary", res.TextResults[0].Content)

	res, err = f.searcher.Search(ctx, Request{Query: "quarterly revenue summary"})
	require.NoError(t, err)
	assert.True(t, res.WasCached)

	res, err = f.searcher.Search(ctx, Request{Query: "Quarterly Revenue Summary"})
	require.NoError(t, err)
	assert.False(t, res.WasCached, "case changes the embedding so it must change the key")

	assert.Equal(t, []string{"quarterly revenue summary", "Quarterly Revenue Summary"}, embedded)
}

func TestSearch_ConcurrentQueries(t *testing.T) {
	f := newFixture(t, true, WithWorkers(1))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.searcher.Search(ctx, Request{Query: "retry delays"})
			assert.NoError(t, err)
			assert.False(t, res.HasError)
		}()
	}
	wg.Wait()
}
