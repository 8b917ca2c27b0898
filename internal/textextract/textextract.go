// Package textextract pulls plain text out of statement documents, reading
// the PDF text layer first and falling back to OCR for scans and images.
package textextract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// DefaultMinTextChars is the text-layer length below which a PDF is treated as scanned.
const DefaultMinTextChars = 100

// Extraction methods reported in Result.Method.
const (
	MethodPDFText = "pdf-text"
	MethodOCR     = "ocr"
)

var (
	// ErrNoText means neither the text layer nor OCR produced usable text.
	ErrNoText = errors.New("no extractable text")
	// ErrUnsupportedMIME is returned for documents that are neither PDF nor image.
	ErrUnsupportedMIME = errors.New("unsupported document type")
)

// OCR recognizes text in a PDF or image.
type OCR interface {
	ExtractText(ctx context.Context, doc []byte, mimeType string) (string, error)
}

// Result is the text of one document.
type Result struct {
	Text   string
	Method string
	Pages  int
}

// Extractor reads documents. A nil OCR disables the fallback.
type Extractor struct {
	ocr          OCR
	minTextChars int
}

// New returns an Extractor. minTextChars <= 0 selects DefaultMinTextChars.
func New(ocr OCR, minTextChars int) *Extractor {
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	return &Extractor{ocr: ocr, minTextChars: minTextChars}
}

// Extract returns the document text.
func (e *Extractor) Extract(ctx context.Context, doc []byte, mimeType string) (Result, error) {
	log := logger.FromContext(ctx)

	switch {
	case mimeType == "application/pdf":
		text, pages, err := pdfText(doc)
		if err != nil {
			log.Warn().Err(err).Msg("PDF text layer unreadable, trying OCR")
		}
		if err == nil && len(strings.TrimSpace(text)) >= e.minTextChars {
			return Result{Text: text, Method: MethodPDFText, Pages: pages}, nil
		}
		log.Debug().Int("chars", len(strings.TrimSpace(text))).Int("min_chars", e.minTextChars).Msg("Falling back to OCR")
		res, ocrErr := e.runOCR(ctx, doc, mimeType)
		if ocrErr != nil {
			// A short text layer still beats nothing.
			if t := strings.TrimSpace(text); t != "" {
				return Result{Text: text, Method: MethodPDFText, Pages: pages}, nil
			}
			return Result{}, ocrErr
		}
		if res.Pages == 0 {
			res.Pages = pages
		}
		return res, nil

	case strings.HasPrefix(mimeType, "image/"):
		res, err := e.runOCR(ctx, doc, mimeType)
		if err != nil {
			return Result{}, err
		}
		res.Pages = 1
		return res, nil
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedMIME, mimeType)
}

func (e *Extractor) runOCR(ctx context.Context, doc []byte, mimeType string) (Result, error) {
	if e.ocr == nil {
		return Result{}, ErrNoText
	}
	text, err := e.ocr.ExtractText(ctx, doc, mimeType)
	if err != nil {
		return Result{}, fmt.Errorf("%w: ocr: %v", ErrNoText, err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoText
	}
	return Result{Text: text, Method: MethodOCR, Pages: 1 + strings.Count(text, "\f")}, nil
}
