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


// Package config holds the engine's startup configuration.
//
// A Config is built once from, in increasing precedence: built-in defaults,
// a YAML file, a .env file, and DOCRAG_* environment variables. It is not
// mutated after Validate succeeds.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/storage/qdrant"
)

// Index backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// Config is the complete engine configuration.
type Config struct {
	AI       ai.Config      `yaml:"ai"`
	Index    IndexConfig    `yaml:"index"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	// Backend is "badger" (embedded) or "qdrant". Default: badger
	Backend string `yaml:"backend"`

	// Path is the badger data directory. Ignored for qdrant.
	Path string `yaml:"path"`

	// InMemory runs badger without a data directory.
	InMemory bool `yaml:"in_memory"`

	// FingerprintPath is the badger directory of the duplicate-detection
	// table. See Config.FingerprintStore for the default.
	FingerprintPath string `yaml:"fingerprint_path"`

	TextCollection  string `yaml:"text_collection"`
	ImageCollection string `yaml:"image_collection"`

	Qdrant qdrant.Config `yaml:"qdrant"`
}

// CacheConfig configures the search and session caches.
type CacheConfig struct {
	// Enabled turns the search cache on. Sessions are always stored.
	Enabled bool `yaml:"enabled"`

	// Path is the badger directory of the cache store; empty means in-memory.
	Path string `yaml:"path"`

	SearchTTL         time.Duration `yaml:"search_ttl"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	SessionMaxHistory int           `yaml:"session_max_history"`
}

// SearchConfig bounds queries and result sizes.
type SearchConfig struct {
	MaxTextResults       int `yaml:"max_text_results"`
	MaxImageResults      int `yaml:"max_image_results"`
	MaxMultimodalResults int `yaml:"max_multimodal_results"`
	MinQueryLength       int `yaml:"min_query_length"`
	MaxQueryLength       int `yaml:"max_query_length"`

	// Workers bounds concurrent modality searches.
	Workers int `yaml:"workers"`
}

// PipelineConfig tunes ingestion.
type PipelineConfig struct {
	// UploadDir holds the pipeline-owned copy of every upload.
	UploadDir string `yaml:"upload_dir"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// EmbedWorkers bounds concurrent embedding and description calls
	// across all jobs.
	EmbedWorkers int `yaml:"embed_workers"`

	// MaxAttempts is the number of tries per AI call, including the first.
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`

	// DescribeImages enables the image stages.
	DescribeImages bool `yaml:"describe_images"`
}

// LogConfig configures process logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration. The API key is empty.
func Default() *Config {
	return &Config{
		AI: *ai.DefaultConfig(),
		Index: IndexConfig{
			Backend:         BackendBadger,
			Path:            "data/index",
			TextCollection:  "document_text",
			ImageCollection: "document_images",
			Qdrant:          qdrant.Config{Host: "localhost", Port: 6334},
		},
		Cache: CacheConfig{
			Enabled:           true,
			SearchTTL:         10 * time.Minute,
			SessionTTL:        24 * time.Hour,
			SessionMaxHistory: 50,
		},
		Search: SearchConfig{
			MaxTextResults:       5,
			MaxImageResults:      3,
			MaxMultimodalResults: 8,
			MinQueryLength:       3,
			MaxQueryLength:       1000,
			Workers:              2,
		},
		Pipeline: PipelineConfig{
			UploadDir:      "data/uploads",
			ChunkSize:      1000,
			ChunkOverlap:   200,
			EmbedWorkers:   4,
			MaxAttempts:    3,
			RetryDelay:     2 * time.Second,
			DescribeImages: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// FingerprintStore returns where the duplicate-detection table lives: the
// explicit index.fingerprint_path, else next to a persistent badger index,
// else next to a persistent cache store, else in memory.
func (c *Config) FingerprintStore() (path string, inMemory bool) {
	switch {
	case c.Index.FingerprintPath != "":
		return c.Index.FingerprintPath, false
	case c.Index.Backend == BackendBadger && !c.Index.InMemory && c.Index.Path != "":
		return filepath.Clean(c.Index.Path) + ".fingerprints", false
	case c.Cache.Path != "":
		return filepath.Clean(c.Cache.Path) + ".fingerprints", false
	}
	return "", true
}

// Validate reports the first configuration problem found. Credential and
// dimension problems surface as ai.ErrMissingCredential and
// ai.ErrInvalidDimension.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return err
	}

	switch c.Index.Backend {
	case BackendBadger:
		if c.Index.Path == "" && !c.Index.InMemory {
			return invalid("index.path is required unless index.in_memory is set")
		}
	case BackendQdrant:
		if c.Index.Qdrant.Host == "" {
			return invalid("index.qdrant.host is required")
		}
		if c.Index.Qdrant.Port <= 0 || c.Index.Qdrant.Port > 65535 {
			return invalid("index.qdrant.port %d out of range", c.Index.Qdrant.Port)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Index.Backend)
	}
	if c.Index.TextCollection == "" || c.Index.ImageCollection == "" {
		return invalid("index collection names are required")
	}
	if c.Index.TextCollection == c.Index.ImageCollection {
		return invalid("text and image collections must differ")
	}

	if c.Cache.Enabled && c.Cache.SearchTTL <= 0 {
		return invalid("cache.search_ttl must be positive")
	}
	if c.Cache.SessionTTL <= 0 {
		return invalid("cache.session_ttl must be positive")
	}
	if c.Cache.SessionMaxHistory < 0 {
		return invalid("cache.session_max_history cannot be negative")
	}

	s := c.Search
	if s.MinQueryLength < 1 || s.MaxQueryLength < s.MinQueryLength {
		return invalid("search query length bounds [%d,%d] are invalid", s.MinQueryLength, s.MaxQueryLength)
	}
	if s.MaxTextResults < 0 || s.MaxImageResults < 0 {
		return invalid("search result limits cannot be negative")
	}
	if s.MaxMultimodalResults < 1 {
		return invalid("search.max_multimodal_results must be at least 1")
	}
	if s.MaxTextResults+s.MaxImageResults > s.MaxMultimodalResults {
		return invalid("search.max_text_results %d plus max_image_results %d exceed max_multimodal_results %d",
			s.MaxTextResults, s.MaxImageResults, s.MaxMultimodalResults)
	}
	if s.Workers < 1 {
		return invalid("search.workers must be at least 1")
	}

	p := c.Pipeline
	if p.UploadDir == "" {
		return invalid("pipeline.upload_dir is required")
	}
	if p.ChunkSize <= 0 || p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return invalid("pipeline chunk size %d / overlap %d are invalid", p.ChunkSize, p.ChunkOverlap)
	}
	if p.EmbedWorkers < 1 {
		return invalid("pipeline.embed_workers must be at least 1")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ai.ErrInvalidMaxAttempts)
	}
	if p.RetryDelay < 0 {
		return invalid("pipeline.retry_delay cannot be negative")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}
