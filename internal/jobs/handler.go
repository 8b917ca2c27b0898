package jobs

import (
	"context"
	"errors"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/parser"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

// Processor handles a single document.
type Processor interface {
	Process(ctx context.Context, doc pipeline.Document) (*domain.StatementRecord, error)
}

// NewStatementHandler runs jobs through p. Failures that another attempt
// cannot fix are marked permanent.
func NewStatementHandler(p Processor) JobHandler {
	return func(ctx context.Context, job *ProcessStatementJob) (*domain.StatementRecord, error) {
		doc, err := documentFor(job)
		if err != nil {
			return nil, Permanent(err)
		}
		rec, err := p.Process(ctx, doc)
		if err != nil {
			if isPermanentFailure(err) {
				return nil, Permanent(err)
			}
			return nil, err
		}
		return rec, nil
	}
}

func documentFor(job *ProcessStatementJob) (pipeline.Document, error) {
	method, err := pipeline.ParseMethod(job.Method)
	if err != nil {
		return pipeline.Document{}, err
	}
	doc := pipeline.Document{Name: job.DocumentName, Method: method}
	if strings.HasPrefix(job.SourceURI, "gs://") {
		doc.URI = job.SourceURI
	} else {
		doc.Path = job.SourceURI
	}
	return doc, nil
}

func isPermanentFailure(err error) bool {
	if errors.Is(err, pipeline.ErrUnsupportedDocument) ||
		errors.Is(err, parser.ErrUnsupportedBank) ||
		errors.Is(err, aivision.ErrNoOracle) {
		return true
	}
	var ee *aivision.ExtractionError
	if errors.As(err, &ee) {
		return !ee.Retryable
	}
	return false
}
