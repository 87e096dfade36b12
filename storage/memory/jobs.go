package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

type jobSlot struct {
	mu      sync.Mutex
	current atomic.Pointer[core.Job]
}

// JobStore implements storage.JobStore in memory.
type JobStore struct {
	slots syncMap[string, *jobSlot]
}

var _ storage.JobStore = (*JobStore)(nil)

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{}
}

func (s *JobStore) Insert(ctx context.Context, job *core.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("%w: job id is empty", core.ErrInvalidJob)
	}
	slot := &jobSlot{}
	slot.current.Store(job.Clone())
	if _, loaded := s.slots.LoadOrStore(job.ID, slot); loaded {
		return fmt.Errorf("%w: job %s", storage.ErrDuplicateKey, job.ID)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*core.Job, error) {
	slot, ok := s.slot(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slot.current.Load().Clone(), nil
}

func (s *JobStore) Update(ctx context.Context, id string, fn func(job *core.Job) error) (*core.Job, error) {
	slot, ok := s.slot(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	next := slot.current.Load().Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	slot.current.Store(next)
	return next.Clone(), nil
}

func (s *JobStore) List(ctx context.Context, filter storage.JobFilter) ([]*core.Job, error) {
	var jobs []*core.Job
	s.slots.Range(func(_ string, slot *jobSlot) bool {
		job := slot.current.Load()
		if filter.UserID != "" && job.UserID != filter.UserID {
			return true
		}
		if filter.Status != "" && job.Status != filter.Status {
			return true
		}
		jobs = append(jobs, job.Clone())
		return true
	})

	slices.SortFunc(jobs, func(a, b *core.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return jobs, nil
}

func (s *JobStore) slot(id string) (*jobSlot, bool) {
	return s.slots.Load(id)
}
