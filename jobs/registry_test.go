package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/docrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	return r
}

func TestRegistry_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	id, err := r.Create(ctx, NewJob{Filename: "report.pdf", Size: 1024, UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Nil(t, job.CompletedAt)

	require.NoError(t, r.MarkProcessing(ctx, id))
	assert.ErrorIs(t, r.MarkProcessing(ctx, id), ErrInvalidTransition)

	require.NoError(t, r.AdvanceStage(ctx, id, "extract", 10))
	require.NoError(t, r.Advance(ctx, id, 5))
	job, _ = r.Get(ctx, id)
	assert.Equal(t, 10, job.Progress, "progress never decreases")
	assert.Equal(t, "extract", job.Stage)

	require.NoError(t, r.Advance(ctx, id, 100))
	job, _ = r.Get(ctx, id)
	assert.Equal(t, 99, job.Progress, "held below 100 until completion")

	require.NoError(t, r.MarkCompleted(ctx, id))
	job, _ = r.Get(ctx, id)
	assert.Equal(t, core.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.CompletedAt)
	assert.NoError(t, core.ValidateJob(job))

	assert.ErrorIs(t, r.Advance(ctx, id, 50), ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkFailed(ctx, id, "late"), ErrInvalidTransition)
	assert.ErrorIs(t, r.Cancel(ctx, id), ErrInvalidTransition)
}

func TestRegistry_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	id, err := r.Create(ctx, NewJob{Filename: "a.txt"})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Advance(ctx, id, 10), ErrInvalidTransition, "pending jobs cannot advance")
	assert.ErrorIs(t, r.MarkCompleted(ctx, id), ErrInvalidTransition, "pending jobs cannot complete")

	require.NoError(t, r.MarkFailed(ctx, id, "extract: unsupported format"))
	job, _ := r.Get(ctx, id)
	assert.Equal(t, core.JobStatusFailed, job.Status)
	assert.Equal(t, "extract: unsupported format", job.Error)
	assert.NoError(t, core.ValidateJob(job))

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, r.MarkProcessing(ctx, "missing"), ErrJobNotFound)
}

func TestRegistry_CreateValidation(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Create(ctx, NewJob{})
	assert.ErrorIs(t, err, core.ErrEmptyFilename)

	_, err = r.Create(ctx, NewJob{ID: "fixed", Filename: "a.txt"})
	require.NoError(t, err)
	_, err = r.Create(ctx, NewJob{ID: "fixed", Filename: "b.txt"})
	assert.Error(t, err)
}

func TestRegistry_CancelStopsWorkerContext(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	id, err := r.Create(ctx, NewJob{Filename: "a.txt"})
	require.NoError(t, err)
	require.NoError(t, r.MarkProcessing(ctx, id))

	workerCtx, done := r.Bind(ctx, id)
	defer done()
	assert.False(t, r.IsCancelled(ctx, id))

	require.NoError(t, r.Cancel(ctx, id))
	<-workerCtx.Done()

	assert.True(t, r.IsCancelled(ctx, id))
	job, _ := r.Get(ctx, id)
	assert.Equal(t, CancelledReason, job.Error)
	assert.Equal(t, "Cancelled", StatusMessage(job))
}

func TestRegistry_ConcurrentAdvanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	id, err := r.Create(ctx, NewJob{Filename: "a.txt"})
	require.NoError(t, err)
	require.NoError(t, r.MarkProcessing(ctx, id))

	var wg sync.WaitGroup
	for p := 1; p <= 90; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			assert.NoError(t, r.Advance(ctx, id, p))
		}(p)
	}
	wg.Wait()

	job, _ := r.Get(ctx, id)
	assert.Equal(t, 90, job.Progress)
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	a, _ := r.Create(ctx, NewJob{Filename: "a.txt", UserID: "u1"})
	_, _ = r.Create(ctx, NewJob{Filename: "b.txt", UserID: "u2"})
	require.NoError(t, r.MarkProcessing(ctx, a))

	mine, err := r.List(ctx, Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a, mine[0].ID)

	pending, err := r.List(ctx, Filter{Status: core.JobStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		job  core.Job
		want string
	}{
		{core.Job{Status: core.JobStatusPending}, "Queued for processing"},
		{core.Job{Status: core.JobStatusProcessing, Progress: 42}, "Processing (42%)"},
		{core.Job{Status: core.JobStatusCompleted, Progress: 100}, "Processing complete"},
		{core.Job{Status: core.JobStatusFailed, Error: "embed_text: chunk 5: retries exhausted"}, "Processing failed: embed_text: chunk 5: retries exhausted"},
		{core.Job{Status: core.JobStatusFailed}, "Processing failed"},
		{core.Job{Status: core.JobStatusFailed, Error: CancelledReason}, "Cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			// Fields outside status, progress and error must not matter.
			j := tt.job
			j.Filename = "ignored.pdf"
			j.Stage = "chunk"
			assert.Equal(t, tt.want, StatusMessage(&j))
		})
	}
}
