package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// Router dispatches extraction by detected Kind.
type Router struct {
	extractors map[Kind]Extractor
	logger     *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router) error

// WithExtractor registers or replaces the extractor for kind.
func WithExtractor(kind Kind, e Extractor) RouterOption {
	return func(r *Router) error {
		if e == nil {
			return fmt.Errorf("nil extractor for %s", kind)
		}
		r.extractors[kind] = e
		return nil
	}
}

// WithPageImager attaches a page imager to the default PDF extractor.
func WithPageImager(imager PageImager) RouterOption {
	return WithExtractor(KindPDF, PDFExtractor{Imager: imager})
}

// WithRouterLogger sets a custom logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) error {
		r.logger = logger
		return nil
	}
}

// NewRouter creates a Router with extractors for every built-in Kind.
func NewRouter(opts ...RouterOption) (*Router, error) {
	r := &Router{
		extractors: map[Kind]Extractor{
			KindPDF:    PDFExtractor{},
			KindOffice: OfficeExtractor{},
			KindImage:  ImageExtractor{},
			KindText:   TextExtractor{},
			KindHTML:   TextExtractor{HTML: true},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "extract-router")
	return r, nil
}

// Extract runs the extractor registered for kind.
func (r *Router) Extract(ctx context.Context, kind Kind, path string) (*Document, error) {
	e, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
	doc, err := e.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc.Kind == "" {
		doc.Kind = kind
	}
	r.logger.Debug("extracted document", "kind", kind, "pages", len(doc.Pages), "images", len(doc.Images))
	return doc, nil
}
