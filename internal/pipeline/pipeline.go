// Package pipeline runs one statement document through loading, extraction,
// categorization and insight generation.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/detect"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// PipelineStep represents a single step in document processing.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Document Document
	Data     []byte
	MIMEType string

	Text       string
	TextMethod string
	Bank       detect.Bank

	// Method is the extraction path that produced Record.
	Method Method
	Record *domain.StatementRecord
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %s failed: %w", step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Msg("Pipeline step complete")
	}
	return nil
}
