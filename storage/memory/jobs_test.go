package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(id, user string, created time.Time) *core.Job {
	return &core.Job{ID: id, Filename: id + ".txt", UserID: user, Status: core.JobStatusPending, CreatedAt: created}
}

func TestJobStore_InsertGet(t *testing.T) {
	ctx := context.Background()
	s := NewJobStore()

	job := newJob("a", "u1", time.Now())
	require.NoError(t, s.Insert(ctx, job))
	assert.ErrorIs(t, s.Insert(ctx, job), storage.ErrDuplicateKey)
	assert.ErrorIs(t, s.Insert(ctx, &core.Job{}), core.ErrInvalidJob)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	got.Progress = 50
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Progress, "returned jobs are copies")

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewJobStore()
	require.NoError(t, s.Insert(ctx, newJob("a", "u1", time.Now())))

	updated, err := s.Update(ctx, "a", func(j *core.Job) error {
		j.Status = core.JobStatusProcessing
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusProcessing, updated.Status)

	boom := errors.New("rejected")
	_, err = s.Update(ctx, "a", func(j *core.Job) error {
		j.Progress = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Get(ctx, "a")
	assert.Equal(t, 0, got.Progress, "failed update stores nothing")

	_, err = s.Update(ctx, "missing", func(j *core.Job) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewJobStore()
	require.NoError(t, s.Insert(ctx, newJob("a", "u1", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "a", func(j *core.Job) error {
				j.Progress++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
}

func TestJobStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewJobStore()
	base := time.Now()

	require.NoError(t, s.Insert(ctx, newJob("old", "u1", base.Add(-time.Hour))))
	require.NoError(t, s.Insert(ctx, newJob("new", "u1", base)))
	require.NoError(t, s.Insert(ctx, newJob("other", "u2", base.Add(-time.Minute))))
	_, err := s.Update(ctx, "old", func(j *core.Job) error {
		j.Status = core.JobStatusProcessing
		return nil
	})
	require.NoError(t, err)

	all, err := s.List(ctx, storage.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "other", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := s.List(ctx, storage.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	processing, err := s.List(ctx, storage.JobFilter{Status: core.JobStatusProcessing})
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "old", processing[0].ID)
}
