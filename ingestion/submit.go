package ingestion

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/dedup"
	"github.com/poiesic/docrag/jobs"
)

// Upload is one file handed over by a transport.
type Upload struct {
	Filename string
	// Size is the declared size; the stored copy's real size is what the job records.
	Size    int64
	UserID  string
	Content io.Reader

	// Force bypasses deduplication: the content is ingested under a new job
	// and the fingerprint is re-pointed at it.
	Force bool
}

// SubmissionStatus is the outcome of Submit.
type SubmissionStatus string

const (
	StatusProcessing SubmissionStatus = "processing"
	StatusDuplicate  SubmissionStatus = "duplicate"
	StatusFailed     SubmissionStatus = "failed"
)

// Submission is what the caller reports back to the uploader.
type Submission struct {
	Status SubmissionStatus
	// JobID is the new job, or for duplicates the job that first ingested
	// the content.
	JobID     string
	Duplicate *core.FingerprintRecord
	Message   string
}

// Submit stores the upload, deduplicates it and starts ingestion in the
// background. The returned error is non-nil exactly when the submission
// status is failed.
func (p *Pipeline) Submit(ctx context.Context, up Upload) (Submission, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.released {
		return failed(ErrPipelineReleased)
	}
	if strings.TrimSpace(up.Filename) == "" {
		return failed(core.ErrEmptyFilename)
	}
	if up.Content == nil {
		return failed(ErrContentRequired)
	}

	jobID := uuid.NewString()
	path, size, err := p.persist(jobID, up)
	if err != nil {
		return failed(fmt.Errorf("store upload: %w", err))
	}

	fp, err := dedup.Fingerprint(path)
	if err != nil {
		os.Remove(path)
		return failed(err)
	}

	var replaced *core.FingerprintRecord
	if up.Force {
		if _, replaced, err = p.dedup.Replace(ctx, fp, jobID, up.Filename, size); err != nil {
			os.Remove(path)
			return failed(err)
		}
	} else {
		res, err := p.dedup.LookupOrRegister(ctx, fp, jobID, up.Filename, size)
		if err != nil {
			os.Remove(path)
			return failed(err)
		}
		if res.Outcome == dedup.Duplicate {
			os.Remove(path)
			p.logger.Info("duplicate upload", "filename", up.Filename, "existing_job", res.Record.JobID)
			return Submission{
				Status:    StatusDuplicate,
				JobID:     res.Record.JobID,
				Duplicate: res.Record,
				Message: fmt.Sprintf("identical content was already uploaded as %q on %s",
					res.Record.OriginalFileName, res.Record.UploadedAt.Format("2006-01-02 15:04:05 MST")),
			}, nil
		}
	}

	if _, err := p.registry.Create(ctx, jobs.NewJob{
		ID:       jobID,
		Filename: up.Filename,
		Size:     size,
		UserID:   up.UserID,
	}); err != nil {
		// A forced upload hands the fingerprint back to the job it replaced.
		if ferr := p.dedup.Restore(ctx, fp, jobID, replaced); ferr != nil {
			p.logger.Warn("could not release fingerprint", "job", jobID, "err", ferr)
		}
		os.Remove(path)
		return failed(err)
	}

	p.workers.Add(1)
	go p.run(jobID, path, up.Filename)

	p.logger.Info("upload accepted", "job", jobID, "filename", up.Filename, "size", size, "force", up.Force)
	return Submission{Status: StatusProcessing, JobID: jobID, Message: "Queued for processing"}, nil
}

// persist copies the upload into the upload dir under a job-unique name.
func (p *Pipeline) persist(jobID string, up Upload) (string, int64, error) {
	path := filepath.Join(p.uploadDir, jobID+"-"+safeName(up.Filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, up.Content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

func safeName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "upload"
	}
	return base
}

func failed(err error) (Submission, error) {
	return Submission{Status: StatusFailed, Message: err.Error()}, err
}
