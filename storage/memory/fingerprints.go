package memory

import (
	"context"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// FingerprintStore implements storage.FingerprintStore in memory.
// Records are immutable once stored; replacement swaps the whole record.
type FingerprintStore struct {
	records syncMap[core.Fingerprint, *core.FingerprintRecord]
}

var _ storage.FingerprintStore = (*FingerprintStore)(nil)

// NewFingerprintStore creates an empty fingerprint store.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{}
}

func (s *FingerprintStore) LoadOrStore(ctx context.Context, rec *core.FingerprintRecord) (*core.FingerprintRecord, bool, error) {
	if err := core.ValidateFingerprintRecord(rec); err != nil {
		return nil, false, err
	}
	stored := *rec
	actual, loaded := s.records.LoadOrStore(rec.Fingerprint, &stored)
	out := *actual
	return &out, loaded, nil
}

func (s *FingerprintStore) Get(ctx context.Context, fp core.Fingerprint) (*core.FingerprintRecord, error) {
	rec, ok := s.records.Load(fp)
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *FingerprintStore) Replace(ctx context.Context, rec *core.FingerprintRecord) (*core.FingerprintRecord, error) {
	if err := core.ValidateFingerprintRecord(rec); err != nil {
		return nil, err
	}
	stored := *rec
	prev, loaded := s.records.Swap(rec.Fingerprint, &stored)
	if !loaded {
		return nil, nil
	}
	out := *prev
	return &out, nil
}

func (s *FingerprintStore) Restore(ctx context.Context, fp core.Fingerprint, jobID string, prev *core.FingerprintRecord) error {
	if prev != nil {
		if err := core.ValidateFingerprintRecord(prev); err != nil {
			return err
		}
	}
	cur, ok := s.records.Load(fp)
	if !ok || cur.JobID != jobID {
		return nil
	}
	if prev == nil {
		s.records.CompareAndDelete(fp, cur)
		return nil
	}
	stored := *prev
	s.records.CompareAndSwap(fp, cur, &stored)
	return nil
}

func (s *FingerprintStore) Delete(ctx context.Context, fp core.Fingerprint, jobID string) error {
	rec, ok := s.records.Load(fp)
	if !ok {
		return nil
	}
	if rec.JobID != jobID {
		return nil
	}
	s.records.CompareAndDelete(fp, rec)
	return nil
}
