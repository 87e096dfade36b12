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


package core

import (
	"fmt"
)

// ValidateJob checks the structural invariants of a job record.
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyFilename)
	}

	if job.Size < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrNegativeSize)
	}

	if !job.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidJob, ErrInvalidStatus, job.Status)
	}

	if job.Progress < 0 || job.Progress > 100 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidJob, ErrInvalidProgress, job.Progress)
	}

	if job.Status.Terminal() != (job.CompletedAt != nil) {
		return fmt.Errorf("%w: completedAt must be set exactly when status is terminal", ErrInvalidJob)
	}

	if (job.Status == JobStatusCompleted) != (job.Progress == 100) {
		return fmt.Errorf("%w: progress is 100 only for completed jobs", ErrInvalidJob)
	}

	return nil
}

// ValidateFingerprintRecord checks that a fingerprint record is usable.
func ValidateFingerprintRecord(rec *FingerprintRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidFingerprint)
	}

	if rec.Fingerprint == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFingerprint, ErrEmptyFingerprint)
	}

	if rec.JobID == "" {
		return fmt.Errorf("%w: job id is empty", ErrInvalidFingerprint)
	}

	return nil
}

// ValidateConversationContext checks a session before it is stored.
func ValidateConversationContext(c *ConversationContext) error {
	if c == nil || c.SessionID == "" {
		return ErrEmptySessionID
	}
	for i, e := range c.History {
		if e.Kind == "" {
			return fmt.Errorf("%w: entry %d", ErrEmptyEntryKind, i)
		}
	}
	return nil
}
