package ingestion

import "errors"

var (
	// ErrRegistryRequired is returned when a job registry is not provided.
	ErrRegistryRequired = errors.New("job registry required")

	// ErrDeduplicatorRequired is returned when a deduplicator is not provided.
	ErrDeduplicatorRequired = errors.New("deduplicator required")

	// ErrIndexRequired is returned when a multimodal index is not provided.
	ErrIndexRequired = errors.New("multimodal index required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrContentRequired is returned when an upload has no content reader.
	ErrContentRequired = errors.New("upload content required")

	// ErrPipelineReleased is returned by Submit after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)
