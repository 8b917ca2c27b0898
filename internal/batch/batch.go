// Package batch processes many statement documents concurrently and keeps
// the result of the latest submission.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

const (
	DefaultConcurrency     = 4
	DefaultDocumentTimeout = 3 * time.Minute
)

// ErrSkipped marks documents that never started because the batch was cancelled.
var ErrSkipped = errors.New("skipped: batch cancelled")

// Processor handles a single document.
type Processor interface {
	Process(ctx context.Context, doc pipeline.Document) (*domain.StatementRecord, error)
}

// Result is the outcome for one document. Exactly one of Record and Err is set.
type Result struct {
	Document string
	Record   *domain.StatementRecord
	Err      error
	Duration time.Duration
}

// Batch holds results in input order.
type Batch struct {
	ID        string
	CreatedAt time.Time
	Results   []Result
}

// Records returns the successful records in input order.
func (b *Batch) Records() []*domain.StatementRecord {
	if b == nil {
		return nil
	}
	out := make([]*domain.StatementRecord, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Err == nil && r.Record != nil {
			out = append(out, r.Record)
		}
	}
	return out
}

// Errors returns the failures in input order.
func (b *Batch) Errors() []error {
	if b == nil {
		return nil
	}
	var out []error
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}

// Runner fans documents out to a Processor.
type Runner struct {
	processor   Processor
	concurrency int
	timeout     time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of documents processed at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDocumentTimeout bounds the time spent on each document.
func WithDocumentTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRunner returns a runner with default limits.
func NewRunner(p Processor, opts ...Option) *Runner {
	r := &Runner{
		processor:   p,
		concurrency: DefaultConcurrency,
		timeout:     DefaultDocumentTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes docs and never fails as a whole: every document gets its own
// Result. Cancelling ctx marks documents that have not started as ErrSkipped.
func (r *Runner) Run(ctx context.Context, docs []pipeline.Document) *Batch {
	b := &Batch{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Results:   make([]Result, len(docs)),
	}
	log := logger.FromContext(ctx).With().Str("batch_id", b.ID).Logger()
	ctx = logger.WithContext(ctx, log)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, doc := range docs {
		b.Results[i].Document = doc.DisplayName()
		if ctx.Err() != nil {
			b.Results[i].Err = ErrSkipped
			continue
		}
		g.Go(func() error {
			b.Results[i] = r.processOne(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	failed := len(b.Errors())
	log.Info().
		Int("documents", len(docs)).
		Int("succeeded", len(docs)-failed).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")
	return b
}

func (r *Runner) processOne(ctx context.Context, doc pipeline.Document) (res Result) {
	res.Document = doc.DisplayName()
	if ctx.Err() != nil {
		res.Err = ErrSkipped
		return res
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log := logger.FromContext(ctx)
			log.Error().
				Str("document", res.Document).
				Str("stack", string(debug.Stack())).
				Msgf("panic while processing document: %v", p)
			res.Record = nil
			res.Err = &pipeline.DocumentError{Document: res.Document, Err: fmt.Errorf("panic: %v", p)}
		}
		res.Duration = time.Since(start)
	}()

	dctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.processor.Process(dctx, doc)
	if err != nil {
		res.Err = err
		return res
	}
	if rec == nil {
		res.Err = &pipeline.DocumentError{Document: res.Document, Err: errors.New("no record produced")}
		return res
	}
	res.Record = rec
	return res
}
