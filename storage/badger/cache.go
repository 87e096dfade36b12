package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/storage"
)

// CacheStore implements storage.CacheStore using badger's native entry TTL.
// Expiry has one-second resolution.
type CacheStore struct {
	backend     *Backend
	ownsBackend bool
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates a cache store on an existing backend.
func NewCacheStore(backend *Backend) *CacheStore {
	return &CacheStore{backend: backend}
}

// OpenCacheStore opens a backend at path and returns a store that owns it.
//
// Returns storage.CacheStore interface to enforce abstraction.
func OpenCacheStore(path string, inMemory bool) (storage.CacheStore, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &CacheStore{backend: backend, ownsBackend: true}, nil
}

// Get returns a copy of the cached value.
func (c *CacheStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	return value, err
}

// Set stores value, replacing any previous value and TTL.
func (c *CacheStore) Set(ctx context.Context, key, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.backend.WithWriteTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return tx.SetEntry(entry)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (c *CacheStore) Delete(ctx context.Context, key []byte) error {
	return c.backend.WithWriteTx(func(tx *badger.Txn) error {
		return tx.Delete(makeCacheKey(key))
	})
}

// Close closes the backend if the store owns it.
func (c *CacheStore) Close() error {
	if c.ownsBackend {
		return c.backend.Close()
	}
	return nil
}
