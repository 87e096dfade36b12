package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/docrag"
)

// jobSource reads job state.
type jobSource interface {
	Job(ctx context.Context, id string) (*docrag.JobView, error)
}

type trackedJob struct {
	ID       string
	Filename string
}

// jobTracker polls jobs until every one is terminal and reports aggregate
// progress on a single line.
type jobTracker struct {
	writer    io.Writer
	source    jobSource
	interval  time.Duration
	startTime time.Time
}

func newJobTracker(writer io.Writer, source jobSource, interval time.Duration) *jobTracker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &jobTracker{writer: writer, source: source, interval: interval}
}

// Wait returns the final view of each job, in the order given.
func (t *jobTracker) Wait(ctx context.Context, jobs []trackedJob) ([]*docrag.JobView, error) {
	t.startTime = time.Now()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		views, done, err := t.poll(ctx, jobs)
		if err != nil {
			return nil, err
		}
		t.report(views, done)
		if done == len(jobs) {
			fmt.Fprintln(t.writer) // Print newline after final progress
			return views, nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(t.writer)
			return views, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *jobTracker) poll(ctx context.Context, jobs []trackedJob) ([]*docrag.JobView, int, error) {
	views := make([]*docrag.JobView, len(jobs))
	done := 0
	for i, j := range jobs {
		view, err := t.source.Job(ctx, j.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", j.Filename, err)
		}
		views[i] = view
		if view.Status.Terminal() {
			done++
		}
	}
	return views, done, nil
}

// report prints the current progress. Failed jobs count as finished work.
func (t *jobTracker) report(views []*docrag.JobView, done int) {
	sum := 0
	for _, v := range views {
		if v.Status.Terminal() {
			sum += 100
		} else {
			sum += v.Progress
		}
	}
	percentage := 0.0
	if len(views) > 0 {
		percentage = float64(sum) / float64(len(views))
	}

	fmt.Fprintf(t.writer, "\rProgress: %d/%d jobs (%.1f%%) - %s elapsed",
		done, len(views), percentage, time.Since(t.startTime).Round(time.Second))
}
