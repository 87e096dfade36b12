package extract

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunk is one embedding-sized text segment.
type Chunk struct {
	Ordinal int // 1-based position across the document
	Page    int
	Text    string
}

// Chunker splits page text with langchaingo's recursive character splitter,
// preferring paragraph then line then word boundaries.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a Chunker. size and overlap are counted in runes.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkSize, size, overlap)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}, nil
}

// Split chunks every page of doc. Chunks never span pages, and blank
// chunks are dropped.
func (c *Chunker) Split(doc *Document) ([]Chunk, error) {
	var chunks []Chunk
	for _, p := range doc.Pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		parts, err := c.splitter.SplitText(p.Text)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", p.Number, err)
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, Chunk{Ordinal: len(chunks) + 1, Page: p.Number, Text: part})
		}
	}
	return chunks, nil
}
