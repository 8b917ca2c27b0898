package batch

import (
	"context"
	"errors"
	"sync"

	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

// Session keeps the latest batch for a caller. Resubmitting the same number
// of documents returns the cached batch; a different count starts over.
// Only one submission runs at a time, and reads never wait for it.
type Session struct {
	runner *Runner

	mu       sync.Mutex
	current  *Batch
	count    int
	inflight chan struct{}
}

// NewSession returns an empty session.
func NewSession(r *Runner) *Session {
	return &Session{runner: r}
}

// Submit returns the batch for docs and whether it was reused. A batch cut
// short by cancellation is returned but not kept.
func (s *Session) Submit(ctx context.Context, docs []pipeline.Document) (*Batch, bool) {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	for s.inflight != nil {
		wait := s.inflight
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			// Every document is reported as skipped.
			return s.runner.Run(ctx, docs), false
		}
		s.mu.Lock()
	}

	if s.current != nil && len(docs) == s.count {
		b := s.current
		s.mu.Unlock()
		return b, true
	}
	if s.current != nil {
		log.Info().
			Int("previous", s.count).
			Int("current", len(docs)).
			Msg("Document set changed, reprocessing")
	}
	done := make(chan struct{})
	s.inflight = done
	s.mu.Unlock()

	b := s.runner.Run(ctx, docs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = nil
	close(done)

	if ctx.Err() != nil || hasSkipped(b) {
		log.Warn().Str("batch_id", b.ID).Msg("Batch cancelled, not kept")
		return b, false
	}
	s.current = b
	s.count = len(docs)
	return b, false
}

func hasSkipped(b *Batch) bool {
	for _, r := range b.Results {
		if errors.Is(r.Err, ErrSkipped) {
			return true
		}
	}
	return false
}

// Reset discards the current batch.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.count = 0
}

// Current returns the latest batch, or nil.
func (s *Session) Current() *Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
