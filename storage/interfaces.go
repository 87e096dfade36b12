package storage

import (
	"context"
	"time"

	"github.com/poiesic/docrag/core"
)

// JobStore persists ingestion jobs.
// Implementations must serialize mutations per job id without a lock that
// spans unrelated jobs, and reads must not block on writers.
type JobStore interface {
	// Insert stores a new job. Returns ErrDuplicateKey if the id is taken.
	Insert(ctx context.Context, job *core.Job) error

	// Get returns a copy of the job. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*core.Job, error)

	// Update applies fn to a copy of the current job and stores the result
	// atomically with respect to other Updates of the same id. If fn returns
	// an error nothing is stored. Returns a copy of the stored job.
	Update(ctx context.Context, id string, fn func(job *core.Job) error) (*core.Job, error)

	// List returns copies of the jobs matching filter, newest first.
	List(ctx context.Context, filter JobFilter) ([]*core.Job, error)
}

// JobFilter narrows List results. Zero fields match everything.
type JobFilter struct {
	UserID string
	Status core.JobStatus
}

// FingerprintStore maps content fingerprints to the job that ingested them.
type FingerprintStore interface {
	// LoadOrStore atomically returns the existing record for rec.Fingerprint
	// (loaded=true) or stores rec (loaded=false).
	LoadOrStore(ctx context.Context, rec *core.FingerprintRecord) (actual *core.FingerprintRecord, loaded bool, err error)

	// Get returns the record for fp. Returns ErrNotFound if absent.
	Get(ctx context.Context, fp core.Fingerprint) (*core.FingerprintRecord, error)

	// Replace unconditionally stores rec and returns the record it
	// overwrote, or nil if there was none.
	Replace(ctx context.Context, rec *core.FingerprintRecord) (prev *core.FingerprintRecord, err error)

	// Restore undoes a Replace: if the record for fp still points at jobID
	// it is swapped back to prev, or removed when prev is nil.
	Restore(ctx context.Context, fp core.Fingerprint, jobID string, prev *core.FingerprintRecord) error

	// Delete removes the record for fp only if it still points at jobID.
	Delete(ctx context.Context, fp core.Fingerprint, jobID string) error
}

// Entry is one vector written to an index collection.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// Hit is one ranked search result.
type Hit struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Filter restricts a search to entries whose Metadata[Field] is one of Values.
type Filter struct {
	Field  string
	Values []string
}

// Matches reports whether metadata satisfies the filter. A nil filter matches everything.
func (f *Filter) Matches(metadata map[string]string) bool {
	if f == nil || len(f.Values) == 0 {
		return true
	}
	v, ok := metadata[f.Field]
	if !ok {
		return false
	}
	for _, want := range f.Values {
		if v == want {
			return true
		}
	}
	return false
}

// VectorIndex stores fixed-dimension vectors in named collections and
// answers nearest-neighbour queries by cosine similarity.
type VectorIndex interface {
	// EnsureCollection creates the collection if absent. It is idempotent;
	// an existing collection with a different dimension yields ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert writes entries, replacing any with the same ID.
	Upsert(ctx context.Context, collection string, entries ...Entry) error

	// Search returns up to limit hits ordered by descending score, ties
	// broken by insertion order where the backend can observe it.
	Search(ctx context.Context, collection string, vector []float32, limit int, filter *Filter) ([]Hit, error)

	// Count returns the number of entries in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Ping verifies the index is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// CacheStore is a TTL-bounded key/value store.
type CacheStore interface {
	// Get returns the value for key. Returns ErrNotFound on miss or expiry.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores value under key. A ttl of zero or less never expires.
	Set(ctx context.Context, key, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key []byte) error

	Close() error
}
