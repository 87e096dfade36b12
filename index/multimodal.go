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


// Package index pairs two vector collections, one for text chunks and one
// for image descriptions, over a single storage.VectorIndex backend.
//
// Both collections share the embedding dimension and are created on first
// use. The package performs no cross-collection joins; combining text and
// image results is left to the caller.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// Default collection names.
const (
	DefaultTextCollection  = "document_text"
	DefaultImageCollection = "document_images"
)

var (
	// ErrUnknownModality indicates an item type other than text or image.
	ErrUnknownModality = errors.New("unknown modality")

	entryNamespace = uuid.MustParse("9c4b2a0e-6d1f-4f3e-8a57-2f0c9e1d7b64")
)

// EntryID derives a stable entry id from the job, modality and ordinal, so
// re-running a job overwrites its own entries instead of duplicating them.
func EntryID(jobID string, t core.ItemType, ordinal int) string {
	return uuid.NewSHA1(entryNamespace, []byte(jobID+"/"+string(t)+"/"+strconv.Itoa(ordinal))).String()
}

type collection struct {
	name    string
	ensured atomic.Bool
}

// Multimodal is the text and image index.
type Multimodal struct {
	backend   storage.VectorIndex
	dimension int
	text      collection
	image     collection
	logger    *slog.Logger
}

// Option configures a Multimodal index.
type Option func(*Multimodal) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Multimodal) error {
		m.logger = logger
		return nil
	}
}

// WithCollections overrides the collection names.
func WithCollections(text, image string) Option {
	return func(m *Multimodal) error {
		if text == "" || image == "" {
			return errors.New("collection names cannot be empty")
		}
		if text == image {
			return errors.New("text and image collections must differ")
		}
		m.text.name = text
		m.image.name = image
		return nil
	}
}

// New creates a Multimodal index over backend with the given embedding dimension.
func New(backend storage.VectorIndex, dimension int, opts ...Option) (*Multimodal, error) {
	if backend == nil {
		return nil, errors.New("vector index cannot be nil")
	}
	if dimension <= 0 {
		return nil, storage.ErrInvalidDimension
	}
	m := &Multimodal{
		backend:   backend,
		dimension: dimension,
		logger:    slog.Default(),
	}
	m.text.name = DefaultTextCollection
	m.image.name = DefaultImageCollection
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "multimodal-index")
	return m, nil
}

// Dimension returns the embedding dimension of both collections.
func (m *Multimodal) Dimension() int {
	return m.dimension
}

// Collection returns the collection name backing modality t.
func (m *Multimodal) Collection(t core.ItemType) (string, error) {
	c, err := m.collection(t)
	if err != nil {
		return "", err
	}
	return c.name, nil
}

// Ensure creates both collections if needed and verifies their dimension.
func (m *Multimodal) Ensure(ctx context.Context) error {
	for _, t := range []core.ItemType{core.ItemTypeText, core.ItemTypeImage} {
		c, _ := m.collection(t)
		if err := m.ensure(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Write upserts entries into modality t's collection.
func (m *Multimodal) Write(ctx context.Context, t core.ItemType, entries ...storage.Entry) error {
	c, err := m.collection(t)
	if err != nil {
		return err
	}
	if err := m.ensure(ctx, c); err != nil {
		return err
	}
	return m.backend.Upsert(ctx, c.name, entries...)
}

// Search returns up to limit items of modality t ranked by similarity to vector.
func (m *Multimodal) Search(ctx context.Context, t core.ItemType, vector []float32, limit int, filter *storage.Filter) ([]core.SearchResultItem, error) {
	c, err := m.collection(t)
	if err != nil {
		return nil, err
	}
	if err := m.ensure(ctx, c); err != nil {
		return nil, err
	}

	hits, err := m.backend.Search(ctx, c.name, vector, limit, filter)
	if err != nil {
		return nil, err
	}

	items := make([]core.SearchResultItem, len(hits))
	for i, h := range hits {
		items[i] = ToItem(h, t)
	}
	return items, nil
}

// Count returns the number of entries in modality t's collection.
func (m *Multimodal) Count(ctx context.Context, t core.ItemType) (int, error) {
	c, err := m.collection(t)
	if err != nil {
		return 0, err
	}
	if err := m.ensure(ctx, c); err != nil {
		return 0, err
	}
	return m.backend.Count(ctx, c.name)
}

// Ping checks that the backend is reachable.
func (m *Multimodal) Ping(ctx context.Context) error {
	return m.backend.Ping(ctx)
}

// Close closes the backend.
func (m *Multimodal) Close() error {
	return m.backend.Close()
}

func (m *Multimodal) collection(t core.ItemType) (*collection, error) {
	switch t {
	case core.ItemTypeText:
		return &m.text, nil
	case core.ItemTypeImage:
		return &m.image, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModality, t)
}

func (m *Multimodal) ensure(ctx context.Context, c *collection) error {
	if c.ensured.Load() {
		return nil
	}
	if err := m.backend.EnsureCollection(ctx, c.name, m.dimension); err != nil {
		return fmt.Errorf("ensure collection %s: %w", c.name, err)
	}
	c.ensured.Store(true)
	return nil
}
