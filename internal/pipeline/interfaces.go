package pipeline

import (
	"context"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/textextract"
)

// StorageService fetches documents from object storage.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// TextExtractor returns the plain text of a document.
type TextExtractor interface {
	Extract(ctx context.Context, doc []byte, mimeType string) (textextract.Result, error)
}

// AIExtractor produces a record straight from the document bytes.
type AIExtractor interface {
	Extract(ctx context.Context, name string, doc []byte, mimeType string) (*domain.StatementRecord, error)
}
