package docrag

import (
	"errors"

	"github.com/poiesic/docrag/storage"
)

var (
	// ErrIndexUnreachable indicates the vector store did not answer the
	// startup ping.
	ErrIndexUnreachable = errors.New("vector index unreachable")

	// ErrDimensionMismatch indicates the embedder produces vectors of a
	// different length than configured, or an existing collection was
	// created with another dimension.
	ErrDimensionMismatch = storage.ErrDimensionMismatch

	// ErrEngineClosed indicates an operation on a closed Engine.
	ErrEngineClosed = errors.New("engine is closed")
)
