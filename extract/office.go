package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// OfficeExtractor reads OOXML word-processing (.docx) and presentation
// (.pptx) files. Each slide becomes a page; a .docx is one unpaged page.
// Images are taken from the package's media folder.
type OfficeExtractor struct{}

// Extract implements Extractor.
func (OfficeExtractor) Extract(ctx context.Context, p string) (*Document, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	defer zr.Close()

	var (
		body   *zip.File
		slides []*zip.File
		media  []*zip.File
	)
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
			body = f
		case strings.HasPrefix(f.Name, "ppt/slides/") && path.Ext(f.Name) == ".xml":
			slides = append(slides, f)
		case strings.HasPrefix(f.Name, "word/media/"), strings.HasPrefix(f.Name, "ppt/media/"):
			media = append(media, f)
		}
	}

	doc := &Document{Kind: KindOffice}
	switch {
	case body != nil:
		text, err := partText(body)
		if err != nil {
			return nil, err
		}
		doc.Pages = []Page{{Text: text}}
	case len(slides) > 0:
		sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })
		for _, s := range slides {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text, err := partText(s)
			if err != nil {
				return nil, err
			}
			doc.Pages = append(doc.Pages, Page{Number: slideNumber(s.Name), Text: text})
		}
		doc.TotalPages = len(slides)
	default:
		return nil, fmt.Errorf("%w: %s is not a .docx or .pptx package", ErrUnsupportedType, path.Base(p))
	}

	sort.Slice(media, func(i, j int) bool { return media[i].Name < media[j].Name })
	for _, m := range media {
		data, err := readPart(m)
		if err != nil {
			return nil, err
		}
		img, err := decodeImage(data)
		if err != nil {
			// Vector formats such as EMF have no decoder and are skipped.
			continue
		}
		img.Kind = ImageEmbedded
		img.Name = path.Base(m.Name)
		doc.Images = append(doc.Images, img)
	}
	numberImages(doc.Images)
	return doc, nil
}

// partText collects <w:t>/<a:t> runs, one line per paragraph.
func partText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, f.Name, err)
	}
	defer rc.Close()

	var (
		sb     strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtractionFailed, f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// slideNumber parses N from ppt/slides/slideN.xml.
func slideNumber(name string) int {
	base := strings.TrimSuffix(path.Base(name), ".xml")
	n, err := strconv.Atoi(strings.TrimPrefix(base, "slide"))
	if err != nil {
		return 0
	}
	return n
}
