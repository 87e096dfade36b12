package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
)

// ImageExtractor treats the upload itself as the only image.
type ImageExtractor struct{}

// Extract implements Extractor.
func (ImageExtractor) Extract(_ context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	img.Kind = ImageStandalone
	img.Number = 1
	img.Name = filepath.Base(path)
	return &Document{Kind: KindImage, Images: []Image{img}}, nil
}

// decodeImage reads the geometry of an encoded image without decoding pixels.
func decodeImage(data []byte) (Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: decode image: %w", ErrExtractionFailed, err)
	}
	return Image{
		Data:     data,
		MIMEType: http.DetectContentType(data),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
