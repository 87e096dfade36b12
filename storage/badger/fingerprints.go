package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// FingerprintStore implements storage.FingerprintStore on BadgerDB so that
// duplicate detection survives restarts. Every operation is one
// transaction; badger's conflict detection makes LoadOrStore a true
// check-and-insert across concurrent callers.
type FingerprintStore struct {
	backend     *Backend
	ownsBackend bool
}

var _ storage.FingerprintStore = (*FingerprintStore)(nil)

// NewFingerprintStore creates a fingerprint store on an existing backend.
func NewFingerprintStore(backend *Backend) *FingerprintStore {
	return &FingerprintStore{backend: backend}
}

// OpenFingerprintStore opens a backend at path and returns a store that
// owns it.
func OpenFingerprintStore(path string, inMemory bool) (*FingerprintStore, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &FingerprintStore{backend: backend, ownsBackend: true}, nil
}

// Close closes the backend if the store owns it.
func (s *FingerprintStore) Close() error {
	if s.ownsBackend {
		return s.backend.Close()
	}
	return nil
}

func (s *FingerprintStore) LoadOrStore(ctx context.Context, rec *core.FingerprintRecord) (*core.FingerprintRecord, bool, error) {
	if err := core.ValidateFingerprintRecord(rec); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var actual *core.FingerprintRecord
	var loaded bool
	err := s.backend.WithWriteTx(func(tx *badger.Txn) error {
		existing, err := readFingerprint(tx, rec.Fingerprint)
		if err != nil {
			return err
		}
		if existing != nil {
			actual, loaded = existing, true
			return nil
		}
		stored := *rec
		actual, loaded = &stored, false
		return tx.Set(makeFingerprintKey(string(rec.Fingerprint)), storage.MarshalFingerprint(rec))
	})
	if err != nil {
		return nil, false, err
	}
	return actual, loaded, nil
}

func (s *FingerprintStore) Get(ctx context.Context, fp core.Fingerprint) (*core.FingerprintRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *core.FingerprintRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		rec, err = readFingerprint(tx, fp)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

func (s *FingerprintStore) Replace(ctx context.Context, rec *core.FingerprintRecord) (*core.FingerprintRecord, error) {
	if err := core.ValidateFingerprintRecord(rec); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var prev *core.FingerprintRecord
	err := s.backend.WithWriteTx(func(tx *badger.Txn) error {
		var err error
		if prev, err = readFingerprint(tx, rec.Fingerprint); err != nil {
			return err
		}
		return tx.Set(makeFingerprintKey(string(rec.Fingerprint)), storage.MarshalFingerprint(rec))
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (s *FingerprintStore) Restore(ctx context.Context, fp core.Fingerprint, jobID string, prev *core.FingerprintRecord) error {
	if prev != nil {
		if err := core.ValidateFingerprintRecord(prev); err != nil {
			return err
		}
	}
	return s.backend.WithWriteTx(func(tx *badger.Txn) error {
		cur, err := readFingerprint(tx, fp)
		if err != nil || cur == nil || cur.JobID != jobID {
			return err
		}
		if prev == nil {
			return tx.Delete(makeFingerprintKey(string(fp)))
		}
		return tx.Set(makeFingerprintKey(string(fp)), storage.MarshalFingerprint(prev))
	})
}

func (s *FingerprintStore) Delete(ctx context.Context, fp core.Fingerprint, jobID string) error {
	return s.Restore(ctx, fp, jobID, nil)
}

// readFingerprint returns nil without error when fp is not registered.
func readFingerprint(tx *badger.Txn, fp core.Fingerprint) (*core.FingerprintRecord, error) {
	item, err := tx.Get(makeFingerprintKey(string(fp)))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalFingerprint(data)
}
