package jobs

import (
	"fmt"

	"github.com/poiesic/docrag/core"
)

// StatusMessage renders a human-readable status line. It depends only on
// the job's status, progress and error.
func StatusMessage(job *core.Job) string {
	switch job.Status {
	case core.JobStatusPending:
		return "Queued for processing"
	case core.JobStatusProcessing:
		return fmt.Sprintf("Processing (%d%%)", job.Progress)
	case core.JobStatusCompleted:
		return "Processing complete"
	case core.JobStatusFailed:
		if job.Error == CancelledReason {
			return "Cancelled"
		}
		if job.Error == "" {
			return "Processing failed"
		}
		return "Processing failed: " + job.Error
	}
	return fmt.Sprintf("Unknown status %q", job.Status)
}
