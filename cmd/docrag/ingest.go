package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/ingestion"
	"github.com/urfave/cli/v2"
)

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	engine, err := openEngine(configFrom(c), slog.Default())
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := c.Context
	out := c.App.Writer
	failures := 0
	var tracked []trackedJob
	for _, path := range c.Args().Slice() {
		sub, err := uploadFile(ctx, engine, path, c.String("user"), c.Bool("force"))
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failures++
			continue
		}
		switch sub.Status {
		case ingestion.StatusDuplicate:
			fmt.Fprintf(out, "%s: %s\n", path, sub.Message)
		case ingestion.StatusProcessing:
			tracked = append(tracked, trackedJob{ID: sub.JobID, Filename: filepath.Base(path)})
		}
	}

	if len(tracked) > 0 {
		tracker := newJobTracker(c.App.ErrWriter, engine, c.Duration("poll"))
		views, err := tracker.Wait(ctx, tracked)
		if err != nil {
			return fmt.Errorf("waiting for jobs: %w", err)
		}
		for i, view := range views {
			fmt.Fprintf(out, "%s: %s (job %s)\n", tracked[i].Filename, view.Message, view.ID)
			if view.Status == core.JobStatusFailed {
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, c.NArg())
	}
	return nil
}

func uploadFile(ctx context.Context, engine *docrag.Engine, path, userID string, force bool) (ingestion.Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingestion.Submission{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ingestion.Submission{}, err
	}
	return engine.Upload(ctx, ingestion.Upload{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		UserID:   userID,
		Content:  f,
		Force:    force,
	})
}
