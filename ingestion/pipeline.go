package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/dedup"
	"github.com/poiesic/docrag/extract"
	"github.com/poiesic/docrag/index"
	"github.com/poiesic/docrag/jobs"
)

// Pipeline orchestrates ingestion jobs from upload to indexed vectors.
type Pipeline struct {
	registry  *jobs.Registry
	dedup     *dedup.Deduplicator
	index     *index.Multimodal
	embedder  ai.Embedder
	describer ai.ImageDescriber
	router    *extract.Router
	chunker   *extract.Chunker
	pool      *ants.Pool

	uploadDir      string
	chunkSize      int
	chunkOverlap   int
	maxAttempts    int
	retryDelay     time.Duration
	describeImages bool

	// base parents every job context; Release cancels it.
	base     context.Context
	stop     context.CancelFunc
	workers  sync.WaitGroup
	mu       sync.RWMutex
	released bool

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent embedding and description
// calls shared by all jobs. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithUploadDir sets the directory holding pipeline-owned upload copies.
// Default is a "docrag-uploads" directory under os.TempDir().
func WithUploadDir(dir string) Option {
	return func(p *Pipeline) error {
		if dir == "" {
			return errors.New("upload dir cannot be empty")
		}
		p.uploadDir = dir
		return nil
	}
}

// WithChunking sets chunk size and overlap in runes. Default 1000/200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithRetry sets the attempt budget and fixed delay for AI calls.
// Default 3 attempts, 2s apart.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = delay
		return nil
	}
}

// WithRouter replaces the extractor router.
func WithRouter(r *extract.Router) Option {
	return func(p *Pipeline) error {
		if r == nil {
			return errors.New("router cannot be nil")
		}
		p.router = r
		return nil
	}
}

// WithImageDescription enables or disables the image stages. Default enabled.
func WithImageDescription(enabled bool) Option {
	return func(p *Pipeline) error {
		p.describeImages = enabled
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	registry *jobs.Registry,
	deduplicator *dedup.Deduplicator,
	idx *index.Multimodal,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if deduplicator == nil {
		return nil, ErrDeduplicatorRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	base, stop := context.WithCancel(context.Background())
	p := &Pipeline{
		registry:       registry,
		dedup:          deduplicator,
		index:          idx,
		embedder:       provider.Embedder(),
		describer:      provider.ImageDescriber(),
		pool:           pool,
		uploadDir:      defaultUploadDir(),
		chunkSize:      1000,
		chunkOverlap:   200,
		maxAttempts:    3,
		retryDelay:     2 * time.Second,
		describeImages: true,
		base:           base,
		stop:           stop,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	if p.embedder == nil {
		p.Release()
		return nil, ErrAIProviderRequired
	}
	if p.chunker, err = extract.NewChunker(p.chunkSize, p.chunkOverlap); err != nil {
		p.Release()
		return nil, err
	}
	if p.router == nil {
		if p.router, err = extract.NewRouter(extract.WithRouterLogger(p.logger)); err != nil {
			p.Release()
			return nil, err
		}
	}
	if err := os.MkdirAll(p.uploadDir, 0o755); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// Wait blocks until every running job worker has returned.
func (p *Pipeline) Wait() {
	p.workers.Wait()
}

// Release stops accepting uploads, cancels running jobs, waits for their
// workers and frees the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	p.released = true
	p.mu.Unlock()

	p.stop()
	p.workers.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}

func defaultUploadDir() string {
	return filepath.Join(os.TempDir(), "docrag-uploads")
}
