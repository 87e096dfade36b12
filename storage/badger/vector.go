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


package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/storage"
)

// VectorIndex implements storage.VectorIndex on BadgerDB with exact
// (brute-force) cosine search. It suits embedded and test deployments;
// every query scans the whole collection.
type VectorIndex struct {
	backend     *Backend
	seq         *badger.Sequence
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a vector index on an existing backend.
// The caller keeps ownership of the backend.
func NewVectorIndex(backend *Backend) (*VectorIndex, error) {
	seq, err := backend.GetSequence(vectorSeqKey)
	if err != nil {
		return nil, err
	}
	return &VectorIndex{
		backend: backend,
		seq:     seq,
		logger:  slog.Default().With("component", "badger-vector-index"),
	}, nil
}

// OpenVectorIndex opens a backend at path and returns an index that owns it.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func OpenVectorIndex(path string, inMemory bool) (storage.VectorIndex, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	idx, err := NewVectorIndex(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	idx.ownsBackend = true
	return idx, nil
}

// Close releases the insertion sequence and, if owned, the backend.
func (v *VectorIndex) Close() error {
	err := v.seq.Release()
	if v.ownsBackend {
		err = errors.Join(err, v.backend.Close())
	}
	return err
}

// Ping checks that the backend is open.
func (v *VectorIndex) Ping(ctx context.Context) error {
	return v.backend.Ping(ctx)
}

// EnsureCollection records the collection's dimension on first use.
func (v *VectorIndex) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return storage.ErrInvalidDimension
	}

	return v.backend.WithWriteTx(func(tx *badger.Txn) error {
		existing, err := readDimension(tx, collection)
		if err == nil {
			if existing != dimension {
				return fmt.Errorf("%w: collection %q has dimension %d, want %d",
					storage.ErrDimensionMismatch, collection, existing, dimension)
			}
			return nil
		}
		if !errors.Is(err, storage.ErrCollectionNotFound) {
			return err
		}
		v.logger.Info("creating collection", "collection", collection, "dimension", dimension)
		return tx.Set(makeCollectionKey(collection), storage.MarshalDimension(dimension))
	})
}

// Upsert writes entries. An entry whose ID already exists keeps its original
// insertion sequence.
func (v *VectorIndex) Upsert(ctx context.Context, collection string, entries ...storage.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return v.backend.WithWriteTx(func(tx *badger.Txn) error {
		dim, err := readDimension(tx, collection)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if len(entry.Vector) != dim {
				return fmt.Errorf("%w: entry %s has %d values, collection %q has dimension %d",
					storage.ErrDimensionMismatch, entry.ID, len(entry.Vector), collection, dim)
			}

			key := makeVectorKey(collection, entry.ID)
			seq, err := v.existingSeq(tx, key)
			if err != nil {
				return err
			}
			if seq == 0 {
				if seq, err = v.nextSeq(); err != nil {
					return err
				}
			}

			rec := &storage.VectorRecord{Entry: entry, Seq: seq}
			if err := tx.Set(key, storage.MarshalVectorRecord(rec)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Search scores every record in the collection against vector.
func (v *VectorIndex) Search(ctx context.Context, collection string, vector []float32, limit int, filter *storage.Filter) ([]storage.Hit, error) {
	if limit <= 0 {
		return []storage.Hit{}, nil
	}

	type scored struct {
		hit storage.Hit
		seq uint64
	}
	var results []scored

	err := v.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := readDimension(tx, collection)
		if err != nil {
			return err
		}
		if len(vector) != dim {
			return fmt.Errorf("%w: query has %d values, collection %q has dimension %d",
				storage.ErrDimensionMismatch, len(vector), collection, dim)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec *storage.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if !filter.Matches(rec.Metadata) {
				continue
			}

			results = append(results, scored{
				hit: storage.Hit{
					ID:       rec.ID,
					Score:    cosineSimilarity(vector, rec.Vector),
					Text:     rec.Text,
					Metadata: rec.Metadata,
				},
				seq: rec.Seq,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, earlier insertions first on ties
	slices.SortFunc(results, func(a, b scored) int {
		if c := cmp.Compare(b.hit.Score, a.hit.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	hits := make([]storage.Hit, len(results))
	for i, r := range results {
		hits[i] = r.hit
	}
	return hits, nil
}

// Count returns the number of records in the collection.
func (v *VectorIndex) Count(ctx context.Context, collection string) (int, error) {
	count := 0
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readDimension(tx, collection); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func (v *VectorIndex) existingSeq(tx *badger.Txn, key []byte) (uint64, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		rec, err := storage.UnmarshalVectorRecord(val)
		if err != nil {
			return err
		}
		seq = rec.Seq
		return nil
	})
	return seq, err
}

func (v *VectorIndex) nextSeq() (uint64, error) {
	next, err := v.seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		return v.seq.Next()
	}
	return next, nil
}

func readDimension(tx *badger.Txn, collection string) (int, error) {
	item, err := tx.Get(makeCollectionKey(collection))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
		}
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		var err error
		dim, err = storage.UnmarshalDimension(val)
		return err
	})
	return dim, err
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
