package core

import (
	"encoding/hex"
	"time"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Job is the lifecycle record of one upload.
// ID, Filename, Size, UserID and CreatedAt never change after creation.
type Job struct {
	ID          string
	Filename    string
	Size        int64
	UserID      string
	Status      JobStatus
	Progress    int    // 0..100, non-decreasing until a terminal status
	Stage       string // last pipeline stage entered
	Error       string // set only when Status is failed
	CreatedAt   time.Time
	CompletedAt *time.Time // set iff Status is terminal
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Fingerprint is a hex-encoded content hash of an uploaded file.
type Fingerprint string

// FingerprintFromSum encodes a raw digest as a Fingerprint.
func FingerprintFromSum(sum []byte) Fingerprint {
	return Fingerprint(hex.EncodeToString(sum))
}

// FingerprintRecord maps a content fingerprint to the job that first ingested it.
type FingerprintRecord struct {
	Fingerprint      Fingerprint
	JobID            string
	OriginalFileName string
	UploadedAt       time.Time
	FileSize         int64
}
