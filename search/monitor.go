package search

import (
	"time"

	"github.com/poiesic/docrag/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to trace a query through cache, embedding and
// index stages. Hooks for the two modalities may run concurrently.
type SearchMonitor interface {
	Start(req Request)
	CacheHit(result *core.CachedSearchResult)
	AfterEmbedding(dimension int, elapsed time.Duration)
	AfterModalitySearch(modality core.ItemType, items []core.SearchResultItem, elapsed time.Duration)
	Finish(result *core.CachedSearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request) {}
func (n *noopMonitor) CacheHit(_ *core.CachedSearchResult) {}
func (n *noopMonitor) AfterEmbedding(_ int, _ time.Duration) {}
func (n *noopMonitor) AfterModalitySearch(_ core.ItemType, _ []core.SearchResultItem, _ time.Duration) {}
func (n *noopMonitor) Finish(_ *core.CachedSearchResult) {}
