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


// Package dedup detects re-uploads of content that has already been ingested.
//
// Files are identified by a BLAKE2b-256 fingerprint of their bytes. The first
// upload of a fingerprint registers it against its job; later uploads of the
// same bytes, under any name, resolve to that job. Registration is a single
// atomic check-and-insert, so when identical uploads race exactly one wins.
package dedup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/memory"
)

// Outcome classifies a registration attempt.
type Outcome int

const (
	// Fresh means the fingerprint was unknown and is now registered.
	Fresh Outcome = iota
	// Duplicate means the fingerprint was already registered to another job.
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "fresh"
}

// Result is the outcome of LookupOrRegister. Record is the registered
// record: the caller's on Fresh, the original on Duplicate.
type Result struct {
	Outcome Outcome
	Record  *core.FingerprintRecord
}

// Deduplicator maintains the fingerprint table.
type Deduplicator struct {
	store  storage.FingerprintStore
	logger *slog.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deduplicator) error {
		d.logger = logger
		return nil
	}
}

// WithStore sets the fingerprint store. Defaults to an in-memory store.
func WithStore(store storage.FingerprintStore) Option {
	return func(d *Deduplicator) error {
		if store == nil {
			return errors.New("fingerprint store cannot be nil")
		}
		d.store = store
		return nil
	}
}

// New creates a Deduplicator.
func New(opts ...Option) (*Deduplicator, error) {
	d := &Deduplicator{
		store:  memory.NewFingerprintStore(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "dedup")
	return d, nil
}

// LookupOrRegister registers fp for jobID unless it is already registered.
func (d *Deduplicator) LookupOrRegister(ctx context.Context, fp core.Fingerprint, jobID, filename string, size int64) (Result, error) {
	rec := newRecord(fp, jobID, filename, size)
	actual, loaded, err := d.store.LoadOrStore(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if loaded {
		d.logger.Info("duplicate upload", "fingerprint", fp, "filename", filename, "existing_job", actual.JobID)
		return Result{Outcome: Duplicate, Record: actual}, nil
	}
	return Result{Outcome: Fresh, Record: actual}, nil
}

// Replace points fp at jobID regardless of any existing registration.
// It backs forced re-ingestion of content that was already uploaded.
// The overwritten record, if any, is returned so the caller can Restore it.
func (d *Deduplicator) Replace(ctx context.Context, fp core.Fingerprint, jobID, filename string, size int64) (rec, prev *core.FingerprintRecord, err error) {
	rec = newRecord(fp, jobID, filename, size)
	if prev, err = d.store.Replace(ctx, rec); err != nil {
		return nil, nil, err
	}
	d.logger.Info("fingerprint replaced", "fingerprint", fp, "job", jobID)
	return rec, prev, nil
}

// Restore rolls back a Replace made for jobID, putting prev back in place.
// With a nil prev it behaves like Forget.
func (d *Deduplicator) Restore(ctx context.Context, fp core.Fingerprint, jobID string, prev *core.FingerprintRecord) error {
	return d.store.Restore(ctx, fp, jobID, prev)
}

// Lookup returns the record registered for fp, or storage.ErrNotFound.
func (d *Deduplicator) Lookup(ctx context.Context, fp core.Fingerprint) (*core.FingerprintRecord, error) {
	return d.store.Get(ctx, fp)
}

// Forget removes the registration of fp if it still belongs to jobID.
// Used to roll back a registration whose job could not be created.
func (d *Deduplicator) Forget(ctx context.Context, fp core.Fingerprint, jobID string) error {
	return d.store.Delete(ctx, fp, jobID)
}

func newRecord(fp core.Fingerprint, jobID, filename string, size int64) *core.FingerprintRecord {
	return &core.FingerprintRecord{
		Fingerprint:      fp,
		JobID:            jobID,
		OriginalFileName: filename,
		UploadedAt:       time.Now().UTC(),
		FileSize:         size,
	}
}
