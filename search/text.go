package search

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/docrag/cache"
)

// Limits bounds queries and result sizes.
type Limits struct {
	MaxTextResults       int
	MaxImageResults      int
	MaxMultimodalResults int
	MinQueryLength       int
	MaxQueryLength       int
}

// DefaultLimits returns the built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxTextResults:       5,
		MaxImageResults:      3,
		MaxMultimodalResults: 8,
		MinQueryLength:       3,
		MaxQueryLength:       1000,
	}
}

// validate checks that the default request fits inside the combined cap.
func (l Limits) validate() error {
	if l.MinQueryLength < 1 || l.MaxQueryLength < l.MinQueryLength {
		return fmt.Errorf("query length bounds [%d,%d] are invalid", l.MinQueryLength, l.MaxQueryLength)
	}
	if l.MaxTextResults < 0 || l.MaxImageResults < 0 {
		return fmt.Errorf("result limits %d/%d cannot be negative", l.MaxTextResults, l.MaxImageResults)
	}
	if l.MaxTextResults+l.MaxImageResults > l.MaxMultimodalResults {
		return fmt.Errorf("text limit %d plus image limit %d exceed combined limit %d",
			l.MaxTextResults, l.MaxImageResults, l.MaxMultimodalResults)
	}
	return nil
}

// normalize validates req against l and fills in default limits. The
// returned query is the same normalized text the cache key hashes, so
// what gets embedded always matches what gets cached.
func (l Limits) normalize(req Request) (Request, error) {
	req.Query = cache.NormalizeQuery(req.Query)
	n := utf8.RuneCountInString(req.Query)
	if n < l.MinQueryLength {
		return req, fmt.Errorf("%w: query must be at least %d characters, got %d", ErrInvalidQuery, l.MinQueryLength, n)
	}
	if n > l.MaxQueryLength {
		return req, fmt.Errorf("%w: query must be at most %d characters, got %d", ErrInvalidQuery, l.MaxQueryLength, n)
	}
	if strings.IndexFunc(req.Query, isDisallowed) >= 0 {
		return req, fmt.Errorf("%w: query contains control characters", ErrInvalidQuery)
	}

	if req.TextLimit == 0 {
		req.TextLimit = l.MaxTextResults
	}
	if req.ImageLimit == 0 {
		req.ImageLimit = l.MaxImageResults
	}
	if req.TextOnly {
		req.ImageLimit = 0
	}
	if req.TextLimit < 0 || req.TextLimit > l.MaxTextResults {
		return req, fmt.Errorf("%w: text limit %d outside [0,%d]", ErrInvalidQuery, req.TextLimit, l.MaxTextResults)
	}
	if req.ImageLimit < 0 || req.ImageLimit > l.MaxImageResults {
		return req, fmt.Errorf("%w: image limit %d outside [0,%d]", ErrInvalidQuery, req.ImageLimit, l.MaxImageResults)
	}
	if req.TextLimit+req.ImageLimit > l.MaxMultimodalResults {
		return req, fmt.Errorf("%w: %d combined results exceed %d", ErrInvalidQuery, req.TextLimit+req.ImageLimit, l.MaxMultimodalResults)
	}

	for _, s := range req.Sources {
		if strings.TrimSpace(s) == "" {
			return req, fmt.Errorf("%w: empty source filter", ErrInvalidQuery)
		}
	}
	return req, nil
}

// isDisallowed rejects control characters other than ordinary whitespace.
func isDisallowed(r rune) bool {
	return unicode.IsControl(r) && !unicode.IsSpace(r)
}
