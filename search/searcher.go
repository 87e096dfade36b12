package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/cache"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/index"
	"github.com/poiesic/docrag/storage"
)

// Request is one retrieval query. Zero limits mean the configured maximum.
type Request struct {
	Query      string
	TextLimit  int
	ImageLimit int
	// Sources restricts results to these uploaded filenames.
	Sources  []string
	TextOnly bool
}

// Searcher provides cached multimodal similarity search.
type Searcher struct {
	index       *index.Multimodal
	embedder    ai.Embedder
	cache       *cache.SearchCache
	pool        *ants.Pool
	limits      Limits
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithCache enables result caching. Without it every search is a miss.
func WithCache(c *cache.SearchCache) Option {
	return func(s *Searcher) error {
		s.cache = c
		return nil
	}
}

// WithLimits sets query and result bounds.
func WithLimits(l Limits) Option {
	return func(s *Searcher) error {
		if err := l.validate(); err != nil {
			return err
		}
		s.limits = l
		return nil
	}
}

// WithWorkers sets how many modality searches may run at once across all
// queries. Default 2.
func WithWorkers(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			n = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithRetry sets the attempt budget and delay for query embedding.
// Default 3 attempts, 500ms apart.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(s *Searcher) error {
		if maxAttempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		s.maxAttempts = maxAttempts
		s.retryDelay = delay
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(idx *index.Multimodal, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil || provider.Embedder() == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, err
	}
	s := &Searcher{
		index:       idx,
		embedder:    provider.Embedder(),
		pool:        pool,
		limits:      DefaultLimits(),
		maxAttempts: 3,
		retryDelay:  500 * time.Millisecond,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// Release frees the worker pool.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Search runs req. See SearchWithMonitor.
func (s *Searcher) Search(ctx context.Context, req Request) (*core.CachedSearchResult, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor validates req, then returns a cached result or runs the
// text and image searches concurrently. Only ErrInvalidQuery is returned as
// an error; search failures come back as an error result, which is never
// cached.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) (*core.CachedSearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	req, err := s.limits.normalize(req)
	if err != nil {
		return nil, err
	}
	monitor.Start(req)

	key := cache.SearchKey{
		Query:      req.Query,
		TextLimit:  req.TextLimit,
		ImageLimit: req.ImageLimit,
		Sources:    req.Sources,
		TextOnly:   req.TextOnly,
	}
	if s.cache != nil {
		if hit, ok := s.cache.Get(ctx, key); ok {
			monitor.CacheHit(hit)
			return hit, nil
		}
	}

	start := time.Now()
	result := s.run(ctx, req, monitor)
	result.TotalDurationMs = time.Since(start).Milliseconds()

	if result.HasError {
		s.logger.Warn("search failed", "query", req.Query, "err", result.ErrorMessage)
	} else if s.cache != nil {
		s.cache.Put(ctx, key, result)
	}
	monitor.Finish(result)
	return result, nil
}

func (s *Searcher) run(ctx context.Context, req Request, monitor SearchMonitor) *core.CachedSearchResult {
	embedStart := time.Now()
	var vector []float32
	err := ai.Retry(ctx, s.maxAttempts, s.retryDelay, func(ctx context.Context) error {
		v, err := s.embedder.EmbedText(ctx, req.Query)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return core.NewErrorResult(fmt.Sprintf("embed query: %v", err))
	}
	monitor.AfterEmbedding(len(vector), time.Since(embedStart))

	var filter *storage.Filter
	if len(req.Sources) > 0 {
		filter = &storage.Filter{Field: index.MetaFilename, Values: req.Sources}
	}

	type outcome struct {
		items    []core.SearchResultItem
		duration time.Duration
		err      error
	}
	var (
		wg           sync.WaitGroup
		text, images outcome
	)
	search := func(modality core.ItemType, limit int, out *outcome) {
		if limit == 0 {
			return
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			started := time.Now()
			out.items, out.err = s.index.Search(ctx, modality, vector, limit, filter)
			out.duration = time.Since(started)
			if out.err == nil {
				monitor.AfterModalitySearch(modality, out.items, out.duration)
			}
		}
		if err := s.pool.Submit(task); err != nil {
			wg.Done()
			out.err = err
		}
	}
	search(core.ItemTypeText, req.TextLimit, &text)
	search(core.ItemTypeImage, req.ImageLimit, &images)
	wg.Wait()

	if err := errors.Join(modalityErr("text", text.err), modalityErr("image", images.err)); err != nil {
		return core.NewErrorResult(err.Error())
	}

	return &core.CachedSearchResult{
		TextResults:  text.items,
		ImageResults: images.items,
		TextMetrics:  core.ComputeMetrics(text.items, text.duration.Milliseconds()),
		ImageMetrics: core.ComputeMetrics(images.items, images.duration.Milliseconds()),
	}
}

func modalityErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s search: %w", name, err)
}
