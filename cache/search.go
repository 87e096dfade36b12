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


package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

const (
	searchNamespace = "search/"

	// DefaultSearchTTL is how long a search result stays cached.
	DefaultSearchTTL = 10 * time.Minute
)

// SearchCache caches CachedSearchResult values by SearchKey.
// A nil store makes every lookup a miss.
type SearchCache struct {
	store  storage.CacheStore
	ttl    time.Duration
	logger *slog.Logger
}

// SearchOption configures a SearchCache.
type SearchOption func(*SearchCache) error

// WithSearchTTL sets the entry lifetime.
func WithSearchTTL(ttl time.Duration) SearchOption {
	return func(c *SearchCache) error {
		if ttl <= 0 {
			return ErrInvalidTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithSearchLogger sets a custom logger.
func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(c *SearchCache) error {
		c.logger = logger
		return nil
	}
}

// NewSearchCache creates a search cache over store.
func NewSearchCache(store storage.CacheStore, opts ...SearchOption) (*SearchCache, error) {
	c := &SearchCache{
		store:  store,
		ttl:    DefaultSearchTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "search-cache")
	return c, nil
}

// Get returns the cached result for key with WasCached set, or false on a
// miss. Store and decode errors count as misses.
func (c *SearchCache) Get(ctx context.Context, key SearchKey) (*core.CachedSearchResult, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("search cache read failed, treating as miss", "err", err)
		}
		return nil, false
	}
	result, err := storage.UnmarshalSearchResult(data)
	if err != nil {
		c.logger.Warn("discarding undecodable cached search result", "err", err)
		return nil, false
	}
	result.WasCached = true
	return result, true
}

// Put stores result under key. Error results are never cached.
func (c *SearchCache) Put(ctx context.Context, key SearchKey, result *core.CachedSearchResult) {
	if c.store == nil || result == nil || result.HasError {
		return
	}
	if err := c.store.Set(ctx, c.storeKey(key), storage.MarshalSearchResult(result), c.ttl); err != nil {
		c.logger.Warn("search cache write failed", "err", err)
	}
}

func (c *SearchCache) storeKey(key SearchKey) []byte {
	return append([]byte(searchNamespace), key.Hash()...)
}
