package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure not owned by ai.Config.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownBackend indicates an index backend other than badger or qdrant.
	ErrUnknownBackend = errors.New("unknown index backend")
)
