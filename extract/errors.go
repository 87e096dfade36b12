package extract

import "errors"

var (
	// ErrUnsupportedType indicates a file whose type has no registered extractor.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrExtractionFailed indicates the format parser rejected the file.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInvalidChunkSize indicates a non-positive chunk size or an overlap
	// not smaller than the chunk size.
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)
