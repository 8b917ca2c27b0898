package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/categorize"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/insights"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/parser"
)

// Deps wires the collaborators of a Processor. Nil fields fall back to
// defaults where one exists; a nil AI disables the AI path.
type Deps struct {
	Method      Method
	Storage     StorageService
	Text        TextExtractor
	Registry    *parser.Registry
	AI          AIExtractor
	Categorizer *categorize.Categorizer
	Insights    *insights.Generator
}

// Processor turns one document into a StatementRecord.
type Processor struct {
	pipeline *Pipeline
}

// NewProcessor builds the standard pipeline.
func NewProcessor(deps Deps) *Processor {
	if deps.Method == "" {
		deps.Method = MethodAuto
	}
	return &Processor{pipeline: NewStatementPipeline(deps)}
}

// NewStatementPipeline returns the standard step sequence.
func NewStatementPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&LoadDocumentStep{Storage: deps.Storage},
		&DetectMIMEStep{},
		&ExtractStep{Method: deps.Method, Text: deps.Text, Registry: deps.Registry, AI: deps.AI},
		&CategorizeStep{Categorizer: deps.Categorizer},
		&ValidateStep{},
		&InsightsStep{Generator: deps.Insights},
		&SourceStep{},
	)
}

// Process runs the pipeline. Failures are *DocumentError.
func (p *Processor) Process(ctx context.Context, doc Document) (*domain.StatementRecord, error) {
	name := doc.DisplayName()
	log := logger.WithDocument(logger.FromContext(ctx), name)
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	state := &PipelineState{Document: doc}
	if err := p.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Document failed")
		return nil, &DocumentError{Document: name, Err: err}
	}

	log.Info().
		Str("method", string(state.Method)).
		Str("bank", state.Bank.String()).
		Int("transactions", len(state.Record.Transactions)).
		Dur("duration", time.Since(start)).
		Msg("Document processed")
	return state.Record, nil
}
