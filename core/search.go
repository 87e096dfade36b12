package core

// ItemType is the modality a search result came from.
type ItemType string

const (
	ItemTypeText  ItemType = "text"
	ItemTypeImage ItemType = "image"
)

// SearchResultItem is one retrieved unit of content.
// Source and ImageID are lookup keys back to the originating file, not ownership.
type SearchResultItem struct {
	Content    string // chunk text or image description
	Score      float32
	Source     string
	Filename   string
	JobID      string
	Type       ItemType
	Page       int // 0 when unknown
	TotalPages int

	// Image-only fields.
	ImagePath   string
	ImageID     string
	Width       int
	Height      int
	ImageNumber int
}

// ModalityMetrics summarizes the results of one modality's search.
type ModalityMetrics struct {
	Count        int
	DurationMs   int64
	AverageScore float64
	MaxScore     float64
	MinScore     float64
}

// ComputeMetrics derives count and score statistics for items.
func ComputeMetrics(items []SearchResultItem, durationMs int64) ModalityMetrics {
	m := ModalityMetrics{Count: len(items), DurationMs: durationMs}
	if len(items) == 0 {
		return m
	}
	var sum float64
	m.MaxScore = float64(items[0].Score)
	m.MinScore = float64(items[0].Score)
	for _, it := range items {
		s := float64(it.Score)
		sum += s
		if s > m.MaxScore {
			m.MaxScore = s
		}
		if s < m.MinScore {
			m.MinScore = s
		}
	}
	m.AverageScore = sum / float64(len(items))
	return m
}

// CachedSearchResult is the cacheable outcome of one retrieval call.
// Either the result fields or the error fields are populated, never both.
type CachedSearchResult struct {
	TextResults     []SearchResultItem
	ImageResults    []SearchResultItem
	TextMetrics     ModalityMetrics
	ImageMetrics    ModalityMetrics
	TotalDurationMs int64
	WasCached       bool

	HasError     bool
	ErrorMessage string
}

// NewErrorResult builds a result that carries only an error message.
func NewErrorResult(msg string) *CachedSearchResult {
	return &CachedSearchResult{HasError: true, ErrorMessage: msg}
}

// IsEmpty reports whether neither modality returned any items.
func (r *CachedSearchResult) IsEmpty() bool {
	return len(r.TextResults) == 0 && len(r.ImageResults) == 0
}

// TotalCount is the number of items across both modalities.
func (r *CachedSearchResult) TotalCount() int {
	return len(r.TextResults) + len(r.ImageResults)
}
