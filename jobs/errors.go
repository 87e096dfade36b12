package jobs

import "errors"

var (
	// ErrJobNotFound indicates no job exists with the given id.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition indicates an operation not allowed from the job's
	// current status, including any change to a terminal job.
	ErrInvalidTransition = errors.New("invalid job state transition")
)
