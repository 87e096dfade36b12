package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/documentloaders"
)

// PageImager produces the images of a PDF: embedded figures and one render
// per page. It is optional; without it PDFs contribute text only.
type PageImager interface {
	Images(ctx context.Context, path string, totalPages int) ([]Image, error)
}

// PDFExtractor reads page text with langchaingo's PDF loader.
type PDFExtractor struct {
	Imager   PageImager
	Password string
}

// Extract implements Extractor.
func (p PDFExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var opts []documentloaders.PDFOptions
	if p.Password != "" {
		opts = append(opts, documentloaders.WithPassword(p.Password))
	}
	docs, err := documentloaders.NewPDF(f, info.Size(), opts...).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	doc := &Document{Kind: KindPDF, TotalPages: len(docs)}
	for i, d := range docs {
		num := i + 1
		if v, ok := d.Metadata["page"].(int); ok {
			num = v
		}
		doc.Pages = append(doc.Pages, Page{Number: num, Text: d.PageContent})
	}

	if p.Imager != nil {
		images, err := p.Imager.Images(ctx, path, doc.TotalPages)
		if err != nil {
			return nil, fmt.Errorf("%w: page images: %w", ErrExtractionFailed, err)
		}
		numberImages(images)
		doc.Images = images
	}
	return doc, nil
}
