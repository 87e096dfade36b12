package index

import (
	"strconv"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// Metadata keys stored with every entry.
const (
	MetaSource      = "source"
	MetaFilename    = "filename"
	MetaJobID       = "job_id"
	MetaPage        = "page"
	MetaTotalPages  = "total_pages"
	MetaImageID     = "image_id"
	MetaImagePath   = "image_path"
	MetaWidth       = "width"
	MetaHeight      = "height"
	MetaImageNumber = "image_number"
	MetaImageKind   = "image_kind"
)

// Location identifies where an entry came from.
type Location struct {
	Source     string // path of the stored copy the entry was extracted from
	Filename   string // name the file was uploaded under
	JobID      string
	Page       int // 1-based; 0 when unknown
	TotalPages int
}

// ImageInfo describes an image entry.
type ImageInfo struct {
	ID     string
	Path   string
	Width  int
	Height int
	Number int    // 1-based ordinal of the image within its document
	Kind   string // "embedded" or "page"
}

// TextEntry builds the index entry for a text chunk.
func TextEntry(ordinal int, vector []float32, text string, loc Location) storage.Entry {
	return storage.Entry{
		ID:       EntryID(loc.JobID, core.ItemTypeText, ordinal),
		Vector:   vector,
		Text:     text,
		Metadata: locationMetadata(loc),
	}
}

// ImageEntry builds the index entry for an image description.
func ImageEntry(ordinal int, vector []float32, description string, loc Location, img ImageInfo) storage.Entry {
	meta := locationMetadata(loc)
	meta[MetaImageID] = img.ID
	meta[MetaImagePath] = img.Path
	meta[MetaWidth] = strconv.Itoa(img.Width)
	meta[MetaHeight] = strconv.Itoa(img.Height)
	meta[MetaImageNumber] = strconv.Itoa(img.Number)
	meta[MetaImageKind] = img.Kind
	return storage.Entry{
		ID:       EntryID(loc.JobID, core.ItemTypeImage, ordinal),
		Vector:   vector,
		Text:     description,
		Metadata: meta,
	}
}

func locationMetadata(loc Location) map[string]string {
	return map[string]string{
		MetaSource:     loc.Source,
		MetaFilename:   loc.Filename,
		MetaJobID:      loc.JobID,
		MetaPage:       strconv.Itoa(loc.Page),
		MetaTotalPages: strconv.Itoa(loc.TotalPages),
	}
}

// ToItem converts an index hit into a search result item of type t.
// Unparseable numeric metadata reads as 0.
func ToItem(hit storage.Hit, t core.ItemType) core.SearchResultItem {
	m := hit.Metadata
	item := core.SearchResultItem{
		Content:    hit.Text,
		Score:      hit.Score,
		Source:     m[MetaSource],
		Filename:   m[MetaFilename],
		JobID:      m[MetaJobID],
		Type:       t,
		Page:       atoi(m[MetaPage]),
		TotalPages: atoi(m[MetaTotalPages]),
	}
	if t == core.ItemTypeImage {
		item.ImageID = m[MetaImageID]
		item.ImagePath = m[MetaImagePath]
		item.Width = atoi(m[MetaWidth])
		item.Height = atoi(m[MetaHeight])
		item.ImageNumber = atoi(m[MetaImageNumber])
	}
	return item
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
