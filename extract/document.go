package extract

import (
	"context"
	"strings"
)

// Kind is a detected document family.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindOffice  Kind = "office"
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindHTML    Kind = "html"
	KindUnknown Kind = "unknown"
)

// ImageKind tells whether an image was embedded in the document, rendered
// from a whole page, or was the upload itself.
type ImageKind string

const (
	ImageEmbedded   ImageKind = "embedded"
	ImagePageRender ImageKind = "page"
	ImageStandalone ImageKind = "standalone"
)

// Page is the text of one page. Number is 1-based, or 0 for unpaged formats.
type Page struct {
	Number int
	Text   string
}

// Image is one raw image blob with its position in the document.
type Image struct {
	Data     []byte
	MIMEType string
	Page     int
	Width    int
	Height   int
	Kind     ImageKind
	Number   int
	Name     string // part name or label inside the document, if any
}

// Document is the extracted content of one file.
type Document struct {
	Kind       Kind
	Pages      []Page
	Images     []Image
	TotalPages int
}

// Text joins all page text.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Extractor reads a stored file into a Document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) (*Document, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) (*Document, error) {
	return f(ctx, path)
}

// numberImages assigns 1-based ordinals in slice order.
func numberImages(images []Image) {
	for i := range images {
		images[i].Number = i + 1
	}
}
