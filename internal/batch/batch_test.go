package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

// fakeProcessor behaves according to the document name.
type fakeProcessor struct {
	active    int32
	maxActive int32
	calls     int32
	delay     time.Duration
}

func (f *fakeProcessor) Process(ctx context.Context, doc pipeline.Document) (*domain.StatementRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}

	switch doc.Name {
	case "fail.pdf":
		return nil, &pipeline.DocumentError{Document: doc.Name, Err: errors.New("bad statement")}
	case "panic.pdf":
		panic("parser exploded")
	case "slow.pdf":
		<-ctx.Done()
		return nil, ctx.Err()
	case "nil.pdf":
		return nil, nil
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	rec := domain.NewStatementRecord()
	rec.Issuer = doc.Name
	return rec, nil
}

func docs(names ...string) []pipeline.Document {
	out := make([]pipeline.Document, len(names))
	for i, n := range names {
		out[i] = pipeline.Document{Name: n}
	}
	return out
}

func TestRunner_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	r := NewRunner(&fakeProcessor{}, WithConcurrency(3), WithDocumentTimeout(50*time.Millisecond))

	b := r.Run(context.Background(), docs("a.pdf", "fail.pdf", "panic.pdf", "b.pdf", "slow.pdf", "nil.pdf", "c.pdf"))

	require.Len(t, b.Results, 7)
	assert.NotEmpty(t, b.ID)
	for i, name := range []string{"a.pdf", "fail.pdf", "panic.pdf", "b.pdf", "slow.pdf", "nil.pdf", "c.pdf"} {
		assert.Equal(t, name, b.Results[i].Document)
	}

	recs := b.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, []string{recs[0].Issuer, recs[1].Issuer, recs[2].Issuer})

	assert.Len(t, b.Errors(), 4)
	assert.EqualError(t, b.Results[1].Err, "Error processing fail.pdf: bad statement")
	assert.Contains(t, b.Results[2].Err.Error(), "panic: parser exploded")
	assert.ErrorIs(t, b.Results[4].Err, context.DeadlineExceeded)
	assert.Error(t, b.Results[5].Err)
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	p := &fakeProcessor{delay: 20 * time.Millisecond}
	r := NewRunner(p, WithConcurrency(2))

	names := make([]string, 8)
	for i := range names {
		names[i] = fmt.Sprintf("doc-%d.pdf", i)
	}
	b := r.Run(context.Background(), docs(names...))

	assert.Len(t, b.Records(), 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&p.maxActive), int32(2))
	assert.EqualValues(t, 8, atomic.LoadInt32(&p.calls))
}

func TestRunner_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProcessor{}
	b := NewRunner(p).Run(ctx, docs("a.pdf", "b.pdf"))

	require.Len(t, b.Results, 2)
	for _, res := range b.Results {
		assert.ErrorIs(t, res.Err, ErrSkipped)
	}
	assert.EqualValues(t, 0, atomic.LoadInt32(&p.calls))
	assert.Empty(t, b.Records())
}

func TestRunner_EmptyInput(t *testing.T) {
	b := NewRunner(&fakeProcessor{}).Run(context.Background(), nil)
	assert.Empty(t, b.Results)
	assert.Empty(t, b.Records())
	assert.Empty(t, b.Errors())
}

func TestSession(t *testing.T) {
	p := &fakeProcessor{}
	s := NewSession(NewRunner(p))
	ctx := context.Background()

	assert.Nil(t, s.Current())

	first, reused := s.Submit(ctx, docs("a.pdf", "b.pdf"))
	assert.False(t, reused)
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))

	again, reused := s.Submit(ctx, docs("a.pdf", "b.pdf"))
	assert.True(t, reused)
	assert.Same(t, first, again)
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls), "same document count is not reprocessed")

	third, reused := s.Submit(ctx, docs("a.pdf", "b.pdf", "c.pdf"))
	assert.False(t, reused)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Len(t, third.Records(), 3)
	assert.Same(t, third, s.Current())

	s.Reset()
	assert.Nil(t, s.Current())
	_, reused = s.Submit(ctx, docs("a.pdf", "b.pdf", "c.pdf"))
	assert.False(t, reused, "reset forces reprocessing")
}

func TestSession_CancelledBatchIsNotKept(t *testing.T) {
	p := &fakeProcessor{}
	s := NewSession(NewRunner(p))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, reused := s.Submit(ctx, docs("a.pdf", "b.pdf"))
	assert.False(t, reused)
	for _, res := range b.Results {
		assert.ErrorIs(t, res.Err, ErrSkipped)
	}
	assert.Nil(t, s.Current())

	b, reused = s.Submit(context.Background(), docs("a.pdf", "b.pdf"))
	assert.False(t, reused, "a cancelled batch is never reused")
	assert.Len(t, b.Records(), 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&p.calls))
	assert.Same(t, b, s.Current())
}

func TestSession_CancelledResubmitKeepsPreviousBatch(t *testing.T) {
	s := NewSession(NewRunner(&fakeProcessor{}))
	first, _ := s.Submit(context.Background(), docs("a.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, reused := s.Submit(ctx, docs("a.pdf", "b.pdf"))
	assert.False(t, reused)
	assert.Same(t, first, s.Current())
}

// gateProcessor blocks every document until release is closed.
type gateProcessor struct {
	started chan struct{}
	release chan struct{}
	calls   int32
}

func (g *gateProcessor) Process(ctx context.Context, doc pipeline.Document) (*domain.StatementRecord, error) {
	if atomic.AddInt32(&g.calls, 1) == 1 {
		close(g.started)
	}
	<-g.release
	rec := domain.NewStatementRecord()
	rec.Issuer = doc.Name
	return rec, nil
}

func TestSession_ReadsDoNotWaitForSubmit(t *testing.T) {
	g := &gateProcessor{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(NewRunner(g))

	type submitted struct {
		b      *Batch
		reused bool
	}
	first := make(chan submitted, 1)
	go func() {
		b, reused := s.Submit(context.Background(), docs("a.pdf"))
		first <- submitted{b, reused}
	}()
	<-g.started

	read := make(chan *Batch, 1)
	go func() { read <- s.Current() }()
	select {
	case b := <-read:
		assert.Nil(t, b)
	case <-time.After(time.Second):
		t.Fatal("Current blocked behind a running Submit")
	}

	second := make(chan submitted, 1)
	go func() {
		b, reused := s.Submit(context.Background(), docs("a.pdf"))
		second <- submitted{b, reused}
	}()

	close(g.release)
	a, b := <-first, <-second
	assert.False(t, a.reused)
	assert.True(t, b.reused, "a concurrent submission waits and reuses the result")
	assert.Same(t, a.b, b.b)
	assert.EqualValues(t, 1, atomic.LoadInt32(&g.calls))
}

func TestSession_WaitingSubmitHonoursCancellation(t *testing.T) {
	g := &gateProcessor{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(NewRunner(g))
	defer close(g.release)

	go s.Submit(context.Background(), docs("a.pdf"))
	<-g.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	b, reused := s.Submit(ctx, docs("b.pdf"))
	assert.False(t, reused)
	require.Len(t, b.Results, 1)
	assert.ErrorIs(t, b.Results[0].Err, ErrSkipped)
}

const oracleStatement = "```json\n" + `{
  "issuer": "Axis Bank",
  "card_last_4": "4321",
  "total_amount_due": "₹1,500.00",
  "transactions": [
    {"date": "05-Jan-2024", "description": "UBER TRIP 123", "amount": "1500.00", "type": "Debit", "category": "Travel"}
  ]
}` + "\n```"

func TestRunner_AIFailureIsolatedToOneDocument(t *testing.T) {
	oracle := aivision.OracleFunc(func(ctx context.Context, prompt string, doc []byte, mime string) (string, error) {
		if strings.Contains(string(doc), "doc2") {
			return "", errors.New("model unavailable")
		}
		return oracleStatement, nil
	})
	ai := aivision.NewAdapter(oracle, aivision.WithRetryConfig(aivision.RetryConfig{}))
	proc := pipeline.NewProcessor(pipeline.Deps{Method: pipeline.MethodAI, AI: ai})

	in := []pipeline.Document{
		{Name: "doc1.pdf", Data: []byte("%PDF-1.4 doc1")},
		{Name: "doc2.pdf", Data: []byte("%PDF-1.4 doc2")},
		{Name: "doc3.pdf", Data: []byte("%PDF-1.4 doc3")},
	}
	b := NewRunner(proc).Run(context.Background(), in)

	require.Len(t, b.Results, 3)
	for _, i := range []int{0, 2} {
		res := b.Results[i]
		require.NoError(t, res.Err, res.Document)
		require.NotNil(t, res.Record)
		assert.Equal(t, "Axis Bank", res.Record.Issuer)
		require.Len(t, res.Record.Transactions, 1)
		assert.Equal(t, domain.CategoryTransport, res.Record.Transactions[0].Category)
	}

	res := b.Results[1]
	assert.Nil(t, res.Record)
	var docErr *pipeline.DocumentError
	require.ErrorAs(t, res.Err, &docErr)
	assert.Equal(t, "doc2.pdf", docErr.Document)
	assert.True(t, strings.HasPrefix(res.Err.Error(), "Error processing doc2.pdf: "), res.Err.Error())

	assert.Len(t, b.Records(), 2)
	assert.Len(t, b.Errors(), 1)
}

func TestRunner_DefaultTimeoutMatchesConfig(t *testing.T) {
	t.Setenv("DOCUMENT_TIMEOUT", "")
	assert.Equal(t, config.FromEnv().Batch.DocumentTimeout, DefaultDocumentTimeout)
	assert.Equal(t, DefaultDocumentTimeout, NewRunner(&fakeProcessor{}).timeout)
}
