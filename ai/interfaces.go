package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageDescriber turns an image into a textual description suitable for
// embedding alongside document text.
// Implementations must be thread-safe for concurrent use.
type ImageDescriber interface {
	// DescribeImage returns a description of the image encoded in data.
	// mimeType is the image's media type, e.g. "image/png".
	DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ImageDescriber returns the vision description service.
	ImageDescriber() ImageDescriber

	// Close releases resources held by the provider and its services.
	Close() error
}
