package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/search"
)

// traceMonitor prints each search step.
type traceMonitor struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
}

var _ search.SearchMonitor = (*traceMonitor)(nil)

func newTraceMonitor(w io.Writer) *traceMonitor {
	return &traceMonitor{w: w}
}

func (m *traceMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, "[%6s] "+format+"\n", append([]any{time.Since(m.start).Round(time.Millisecond)}, args...)...)
}

func (m *traceMonitor) Start(req search.Request) {
	m.start = time.Now()
	m.printf("query %q text_limit=%d image_limit=%d sources=%v text_only=%t",
		req.Query, req.TextLimit, req.ImageLimit, req.Sources, req.TextOnly)
}

func (m *traceMonitor) CacheHit(result *core.CachedSearchResult) {
	m.printf("cache hit: %d results", result.TotalCount())
}

func (m *traceMonitor) AfterEmbedding(dimension int, elapsed time.Duration) {
	m.printf("embedded query: %d dimensions in %s", dimension, elapsed.Round(time.Millisecond))
}

func (m *traceMonitor) AfterModalitySearch(modality core.ItemType, items []core.SearchResultItem, elapsed time.Duration) {
	m.printf("%s search: %d items in %s", modality, len(items), elapsed.Round(time.Millisecond))
}

func (m *traceMonitor) Finish(result *core.CachedSearchResult) {
	if result.HasError {
		m.printf("failed: %s", result.ErrorMessage)
		return
	}
	m.printf("done: %d results", result.TotalCount())
}
