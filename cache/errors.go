package cache

import "errors"

// ErrInvalidTTL indicates a non-positive TTL.
var ErrInvalidTTL = errors.New("cache ttl must be positive")
