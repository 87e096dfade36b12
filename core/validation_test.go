package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateJob(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		job     *Job
		wantErr error
	}{
		{
			name:    "nil job",
			job:     nil,
			wantErr: ErrInvalidJob,
		},
		{
			name: "valid pending",
			job:  &Job{ID: "1", Filename: "a.txt", Status: JobStatusPending, CreatedAt: now},
		},
		{
			name: "valid completed",
			job:  &Job{ID: "1", Filename: "a.txt", Status: JobStatusCompleted, Progress: 100, CompletedAt: &now},
		},
		{
			name: "valid failed keeps partial progress",
			job:  &Job{ID: "1", Filename: "a.txt", Status: JobStatusFailed, Progress: 40, Error: "boom", CompletedAt: &now},
		},
		{
			name:    "empty filename",
			job:     &Job{ID: "1", Status: JobStatusPending},
			wantErr: ErrEmptyFilename,
		},
		{
			name:    "negative size",
			job:     &Job{ID: "1", Filename: "a.txt", Size: -1, Status: JobStatusPending},
			wantErr: ErrNegativeSize,
		},
		{
			name:    "unknown status",
			job:     &Job{ID: "1", Filename: "a.txt", Status: "paused"},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "progress out of range",
			job:     &Job{ID: "1", Filename: "a.txt", Status: JobStatusProcessing, Progress: 101},
			wantErr: ErrInvalidProgress,
		},
		{
			name:    "completed without timestamp",
			job:     &Job{ID: "1", Filename: "a.txt", Status: JobStatusCompleted, Progress: 100},
			wantErr: ErrInvalidJob,
		},
		{
			name:    "processing at 100",
			job:     &Job{ID: "1", Filename: "a.txt", Status: JobStatusProcessing, Progress: 100},
			wantErr: ErrInvalidJob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJob(tt.job)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateFingerprintRecord(t *testing.T) {
	assert.ErrorIs(t, ValidateFingerprintRecord(nil), ErrInvalidFingerprint)
	assert.ErrorIs(t, ValidateFingerprintRecord(&FingerprintRecord{JobID: "j"}), ErrEmptyFingerprint)
	assert.ErrorIs(t, ValidateFingerprintRecord(&FingerprintRecord{Fingerprint: "ab"}), ErrInvalidFingerprint)
	assert.NoError(t, ValidateFingerprintRecord(&FingerprintRecord{Fingerprint: "ab", JobID: "j"}))
}

func TestValidateConversationContext(t *testing.T) {
	assert.ErrorIs(t, ValidateConversationContext(nil), ErrEmptySessionID)
	assert.ErrorIs(t, ValidateConversationContext(&ConversationContext{}), ErrEmptySessionID)

	bad := &ConversationContext{SessionID: "s", History: []HistoryEntry{{Text: "x"}}}
	assert.ErrorIs(t, ValidateConversationContext(bad), ErrEmptyEntryKind)

	ok := &ConversationContext{SessionID: "s", History: []HistoryEntry{NewMessageEntry("user", "x")}}
	assert.NoError(t, ValidateConversationContext(ok))
}
