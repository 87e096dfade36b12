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


package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/memory"
)

// CancelledReason is the failure message recorded for cancelled jobs.
const CancelledReason = "cancelled"

// maxRunningProgress is the highest progress a non-completed job may report.
const maxRunningProgress = 99

// NewJob describes a job to be created. ID is generated when empty.
type NewJob struct {
	ID       string
	Filename string
	Size     int64
	UserID   string
}

// Filter narrows List results. Zero fields match everything.
type Filter = storage.JobFilter

// Registry owns the lifecycle of ingestion jobs and enforces the
// pending -> processing -> completed|failed state machine.
type Registry struct {
	store  storage.JobStore
	cancel sync.Map // job id -> context.CancelFunc
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

// WithStore sets the job store. Defaults to an in-memory store.
func WithStore(store storage.JobStore) Option {
	return func(r *Registry) error {
		if store == nil {
			return errors.New("job store cannot be nil")
		}
		r.store = store
		return nil
	}
}

// NewRegistry creates a job registry.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		store:  memory.NewJobStore(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "job-registry")
	return r, nil
}

// Create registers a pending job and returns its id.
func (r *Registry) Create(ctx context.Context, spec NewJob) (string, error) {
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	job := &core.Job{
		ID:        id,
		Filename:  spec.Filename,
		Size:      spec.Size,
		UserID:    spec.UserID,
		Status:    core.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := core.ValidateJob(job); err != nil {
		return "", err
	}
	if err := r.store.Insert(ctx, job); err != nil {
		return "", err
	}
	r.logger.Debug("job created", "job", id, "filename", spec.Filename, "user", spec.UserID)
	return id, nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(ctx context.Context, id string) (*core.Job, error) {
	job, err := r.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// List returns jobs matching filter, newest first.
func (r *Registry) List(ctx context.Context, filter Filter) ([]*core.Job, error) {
	return r.store.List(ctx, filter)
}

// MarkProcessing moves a pending job to processing.
func (r *Registry) MarkProcessing(ctx context.Context, id string) error {
	_, err := r.update(ctx, id, func(job *core.Job) error {
		if job.Status != core.JobStatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, core.JobStatusProcessing)
		}
		job.Status = core.JobStatusProcessing
		return nil
	})
	return err
}

// Advance raises the progress of a processing job. Progress never decreases
// and is held below 100 until the job completes.
func (r *Registry) Advance(ctx context.Context, id string, progress int) error {
	return r.AdvanceStage(ctx, id, "", progress)
}

// AdvanceStage records the stage being entered along with the progress.
// An empty stage leaves the current stage unchanged.
func (r *Registry) AdvanceStage(ctx context.Context, id, stage string, progress int) error {
	_, err := r.update(ctx, id, func(job *core.Job) error {
		if job.Status != core.JobStatusProcessing {
			return fmt.Errorf("%w: cannot advance %s job", ErrInvalidTransition, job.Status)
		}
		progress = min(max(progress, 0), maxRunningProgress)
		job.Progress = max(job.Progress, progress)
		if stage != "" {
			job.Stage = stage
		}
		return nil
	})
	return err
}

// MarkCompleted moves a processing job to completed with progress 100.
func (r *Registry) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.update(ctx, id, func(job *core.Job) error {
		if job.Status != core.JobStatusProcessing {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, core.JobStatusCompleted)
		}
		now := time.Now().UTC()
		job.Status = core.JobStatusCompleted
		job.Progress = 100
		job.CompletedAt = &now
		return nil
	})
	if err == nil {
		r.release(id)
	}
	return err
}

// MarkFailed moves a pending or processing job to failed with reason.
// Progress is left where it was.
func (r *Registry) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.update(ctx, id, func(job *core.Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, core.JobStatusFailed)
		}
		now := time.Now().UTC()
		job.Status = core.JobStatusFailed
		job.Error = reason
		job.CompletedAt = &now
		return nil
	})
	if err == nil {
		r.logger.Info("job failed", "job", id, "reason", reason)
		r.release(id)
	}
	return err
}

// Cancel fails the job with CancelledReason and signals its worker to stop.
func (r *Registry) Cancel(ctx context.Context, id string) error {
	return r.MarkFailed(ctx, id, CancelledReason)
}

// Bind derives a context for the job's worker that is cancelled when the
// job is cancelled or otherwise reaches a terminal status.
func (r *Registry) Bind(parent context.Context, id string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel.Store(id, cancel)
	return ctx, func() {
		r.cancel.CompareAndDelete(id, cancel)
		cancel()
	}
}

// IsCancelled reports whether the job has been failed while its worker
// was still running.
func (r *Registry) IsCancelled(ctx context.Context, id string) bool {
	job, err := r.store.Get(ctx, id)
	if err != nil {
		return true
	}
	return job.Status == core.JobStatusFailed
}

func (r *Registry) release(id string) {
	if v, ok := r.cancel.LoadAndDelete(id); ok {
		v.(context.CancelFunc)()
	}
}

func (r *Registry) update(ctx context.Context, id string, fn func(job *core.Job) error) (*core.Job, error) {
	job, err := r.store.Update(ctx, id, fn)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}
