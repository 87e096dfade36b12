package extract

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var extensionKinds = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindOffice,
	".pptx": KindOffice,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".txt":  KindText,
	".md":   KindText,
	".csv":  KindText,
	".log":  KindText,
	".html": KindHTML,
	".htm":  KindHTML,
}

// Detect determines the Kind of the file at path and its sniffed MIME type.
// The extension decides when it is known; otherwise the leading bytes do.
func Detect(path string) (Kind, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KindUnknown, "", err
	}
	mime := http.DetectContentType(head[:n])

	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return kind, mime, nil
	}
	return kindFromMIME(mime), mime, nil
}

func kindFromMIME(mime string) Kind {
	base, _, _ := strings.Cut(mime, ";")
	switch {
	case base == "application/pdf":
		return KindPDF
	case base == "application/zip":
		// OOXML containers sniff as zip; the office extractor rejects other archives.
		return KindOffice
	case strings.HasPrefix(base, "image/"):
		return KindImage
	case base == "text/html":
		return KindHTML
	case strings.HasPrefix(base, "text/"):
		return KindText
	}
	return KindUnknown
}
