package extract

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"
)

// TextExtractor loads plain text or HTML as a single unpaged document.
type TextExtractor struct {
	HTML bool
}

// Extract implements Extractor.
func (t TextExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var loader documentloaders.Loader = documentloaders.NewText(f)
	kind := KindText
	if t.HTML {
		loader = documentloaders.NewHTML(f)
		kind = KindHTML
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	doc := &Document{Kind: kind}
	for _, d := range docs {
		if !utf8.ValidString(d.PageContent) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrExtractionFailed, path)
		}
		doc.Pages = append(doc.Pages, Page{Text: d.PageContent})
	}
	return doc, nil
}
