package pipeline

import (
	"bytes"
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsupportedDocument is returned for files that are not PDFs or images.
var ErrUnsupportedDocument = errors.New("unsupported document: expected PDF, PNG or JPEG")

// Document is one input. Exactly one of Data, Path or URI is normally set;
// Data wins when several are.
type Document struct {
	Name     string
	Data     []byte
	Path     string
	URI      string
	MIMEType string

	// Method overrides the processor's extraction method when set.
	Method Method
}

// DisplayName is the name used in logs, errors and provenance.
func (d Document) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.URI != "":
		return FilenameFromURI(d.URI)
	case d.Path != "":
		return filepath.Base(d.Path)
	}
	return "document"
}

// FilenameFromURI extracts the object name, e.g. "gs://bucket/folder/file.pdf" → "file.pdf".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

var (
	pdfMagic  = []byte("%PDF")
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// SniffMIME identifies a document by its leading bytes.
func SniffMIME(data []byte) (string, error) {
	head := bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n ")
	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return "application/pdf", nil
	case bytes.HasPrefix(data, pngMagic):
		return "image/png", nil
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg", nil
	}
	return "", ErrUnsupportedDocument
}
