// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package docrag ingests uploaded documents into a multimodal vector index
// and answers cached similarity searches over it.
//
// Open wires the packages below from a config.Config:
//
//	cfg, err := config.Load("docrag.yaml")
//	engine, err := docrag.Open(cfg)
//	defer engine.Close()
//	sub, err := engine.Upload(ctx, ingestion.Upload{Filename: "guide.pdf", Content: f})
//	res, err := engine.Search(ctx, search.Request{Query: "retry policy"})
package docrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/openai"
	"github.com/poiesic/docrag/cache"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/dedup"
	"github.com/poiesic/docrag/extract"
	"github.com/poiesic/docrag/index"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/jobs"
	"github.com/poiesic/docrag/search"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/poiesic/docrag/storage/qdrant"
)

const dimensionProbe = "dimension probe"

// Engine is the assembled ingestion and retrieval service.
type Engine struct {
	cfg      *config.Config
	provider ai.AIProvider
	index    *index.Multimodal
	store    storage.CacheStore
	prints   *badger.FingerprintStore
	registry *jobs.Registry
	pipeline *ingestion.Pipeline
	searcher *search.Searcher
	sessions *cache.SessionCache
	closed   atomic.Bool
	logger   *slog.Logger
}

// JobView is a job snapshot with its rendered status message.
type JobView struct {
	core.Job
	Message string
}

// EngineOption configures Open.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger         *slog.Logger
	provider       ai.AIProvider
	router         *extract.Router
	startupTimeout time.Duration
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithProvider supplies the AI provider instead of building an
// OpenAI-compatible one from the configuration. The engine closes it.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithRouter replaces the default extractor router, e.g. to plug in a
// PDF page renderer.
func WithRouter(r *extract.Router) EngineOption {
	return func(o *engineOptions) {
		o.router = r
	}
}

// WithStartupTimeout bounds the index ping and the embedder probe.
// Default 10s.
func WithStartupTimeout(d time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.startupTimeout = d
	}
}

// Open validates cfg, connects the stores and verifies that the vector
// index is reachable and that the embedder's output matches the configured
// dimension. Nothing is left open when it fails.
func Open(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		logger:         slog.Default(),
		startupTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, logger: logger.With("component", "engine")}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	vectors, err := openVectorIndex(cfg.Index)
	if err != nil {
		return nil, err
	}
	e.index, err = index.New(vectors, cfg.AI.EmbeddingDimension,
		index.WithLogger(logger),
		index.WithCollections(cfg.Index.TextCollection, cfg.Index.ImageCollection))
	if err != nil {
		vectors.Close()
		return nil, err
	}

	// Without a cache store searches run uncached and sessions are not kept.
	if store, err := badger.OpenCacheStore(cfg.Cache.Path, cfg.Cache.Path == ""); err != nil {
		e.logger.Warn("cache store unavailable, continuing without cache", "path", cfg.Cache.Path, "err", err)
	} else {
		e.store = store
	}

	fpPath, fpInMemory := cfg.FingerprintStore()
	if e.prints, err = badger.OpenFingerprintStore(fpPath, fpInMemory); err != nil {
		return nil, fmt.Errorf("open fingerprint store: %w", err)
	}
	if fpInMemory {
		e.logger.Info("duplicate detection is in-memory and resets on restart")
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProvider(&cfg.AI, openai.WithLogger(logger)); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), options.startupTimeout)
	defer cancel()
	if err := e.index.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnreachable, err)
	}
	if err := probeDimension(ctx, e.provider, cfg.AI.EmbeddingDimension); err != nil {
		return nil, err
	}
	if err := e.index.Ensure(ctx); err != nil {
		return nil, err
	}

	if e.registry, err = jobs.NewRegistry(jobs.WithLogger(logger)); err != nil {
		return nil, err
	}
	deduplicator, err := dedup.New(dedup.WithLogger(logger), dedup.WithStore(e.prints))
	if err != nil {
		return nil, err
	}

	p := cfg.Pipeline
	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithPoolSize(p.EmbedWorkers),
		ingestion.WithUploadDir(p.UploadDir),
		ingestion.WithChunking(p.ChunkSize, p.ChunkOverlap),
		ingestion.WithRetry(p.MaxAttempts, p.RetryDelay),
		ingestion.WithImageDescription(p.DescribeImages),
	}
	if options.router != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithRouter(options.router))
	}
	if e.pipeline, err = ingestion.NewPipeline(e.registry, deduplicator, e.index, e.provider, pipelineOpts...); err != nil {
		return nil, err
	}

	searchOpts := []search.Option{
		search.WithLogger(logger),
		search.WithWorkers(cfg.Search.Workers),
		search.WithLimits(search.Limits{
			MaxTextResults:       cfg.Search.MaxTextResults,
			MaxImageResults:      cfg.Search.MaxImageResults,
			MaxMultimodalResults: cfg.Search.MaxMultimodalResults,
			MinQueryLength:       cfg.Search.MinQueryLength,
			MaxQueryLength:       cfg.Search.MaxQueryLength,
		}),
	}
	if cfg.Cache.Enabled {
		sc, err := cache.NewSearchCache(e.store,
			cache.WithSearchTTL(cfg.Cache.SearchTTL),
			cache.WithSearchLogger(logger))
		if err != nil {
			return nil, err
		}
		searchOpts = append(searchOpts, search.WithCache(sc))
	}
	if e.searcher, err = search.NewSearcher(e.index, e.provider, searchOpts...); err != nil {
		return nil, err
	}

	if e.sessions, err = cache.NewSessionCache(e.store,
		cache.WithSessionTTL(cfg.Cache.SessionTTL),
		cache.WithMaxHistory(cfg.Cache.SessionMaxHistory),
		cache.WithSessionLogger(logger)); err != nil {
		return nil, err
	}

	ok = true
	e.logger.Info("engine ready",
		"backend", cfg.Index.Backend,
		"dimension", cfg.AI.EmbeddingDimension,
		"search_cache", cfg.Cache.Enabled && e.store != nil)
	return e, nil
}

func openVectorIndex(cfg config.IndexConfig) (storage.VectorIndex, error) {
	switch cfg.Backend {
	case config.BackendQdrant:
		return qdrant.Open(cfg.Qdrant)
	case config.BackendBadger:
		vectors, err := badger.OpenVectorIndex(cfg.Path, cfg.InMemory)
		if err != nil {
			return nil, fmt.Errorf("open vector index: %w", err)
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

func probeDimension(ctx context.Context, provider ai.AIProvider, want int) error {
	vec, err := provider.Embedder().EmbedText(ctx, dimensionProbe)
	if errors.Is(err, ai.ErrEmbeddingShape) {
		return fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}
	if err != nil {
		return fmt.Errorf("embedding probe: %w", err)
	}
	if len(vec) != want {
		return fmt.Errorf("%w: embedder returned %d values, configured %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Upload stores, deduplicates and starts ingesting a file.
func (e *Engine) Upload(ctx context.Context, up ingestion.Upload) (ingestion.Submission, error) {
	if e.closed.Load() {
		return ingestion.Submission{Status: ingestion.StatusFailed, Message: ErrEngineClosed.Error()}, ErrEngineClosed
	}
	return e.pipeline.Submit(ctx, up)
}

// Job returns the current state of a job.
func (e *Engine) Job(ctx context.Context, id string) (*JobView, error) {
	job, err := e.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return newJobView(job), nil
}

// Jobs lists the jobs of one user, or every job when userID is empty.
func (e *Engine) Jobs(ctx context.Context, userID string) ([]*JobView, error) {
	list, err := e.registry.List(ctx, jobs.Filter{UserID: userID})
	if err != nil {
		return nil, err
	}
	views := make([]*JobView, 0, len(list))
	for _, job := range list {
		views = append(views, newJobView(job))
	}
	return views, nil
}

func newJobView(job *core.Job) *JobView {
	return &JobView{Job: *job, Message: jobs.StatusMessage(job)}
}

// Cancel stops a pending or running job. Cancelling a finished job
// returns jobs.ErrInvalidTransition.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	return e.registry.Cancel(ctx, id)
}

// Wait blocks until every in-flight job has finished.
func (e *Engine) Wait() {
	e.pipeline.Wait()
}

// Search runs a retrieval query.
func (e *Engine) Search(ctx context.Context, req search.Request) (*core.CachedSearchResult, error) {
	return e.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs a retrieval query, reporting each step to monitor.
func (e *Engine) SearchWithMonitor(ctx context.Context, req search.Request, monitor search.SearchMonitor) (*core.CachedSearchResult, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.searcher.SearchWithMonitor(ctx, req, monitor)
}

// Session returns the stored conversation, or nil when none exists.
func (e *Engine) Session(ctx context.Context, sessionID string) *core.ConversationContext {
	return e.sessions.Get(ctx, sessionID)
}

// AppendSession adds entry to a conversation, creating it when needed.
func (e *Engine) AppendSession(ctx context.Context, sessionID, userID string, entry core.HistoryEntry) (*core.ConversationContext, error) {
	return e.sessions.Append(ctx, sessionID, userID, entry)
}

// Count reports how many entries the index holds for a modality.
func (e *Engine) Count(ctx context.Context, t core.ItemType) (int, error) {
	return e.index.Count(ctx, t)
}

// Close cancels running jobs and releases every resource. It is safe to
// call more than once.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	if e.searcher != nil {
		e.searcher.Release()
	}

	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing cache store", "err", err)
			errs = append(errs, err)
		}
	}
	if e.prints != nil {
		if err := e.prints.Close(); err != nil {
			e.logger.Error("error closing fingerprint store", "err", err)
			errs = append(errs, err)
		}
	}
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
