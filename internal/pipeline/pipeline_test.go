package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/parser"
	"github.com/dvloznov/statement-analyzer/internal/textextract"
)

const hdfcText = `HDFC Bank Credit Card Statement
Card No : 4386 XXXX XXXX 1234
Total Dues : 3,000.00
Credit Limit : 10,000.00
18/12/2023 SWIGGY BANGALORE 452.00
20/12/2023 UBER TRIP 312.50
28/12/2023 PAYMENT RECEIVED 2,000.00 Cr
`

var pdfBytes = []byte("%PDF-1.4 fake")

type fakeText struct {
	text  string
	err   error
	calls int
}

func (f *fakeText) Extract(ctx context.Context, doc []byte, mime string) (textextract.Result, error) {
	f.calls++
	return textextract.Result{Text: f.text, Method: textextract.MethodPDFText, Pages: 1}, f.err
}

type fakeAI struct {
	rec   *domain.StatementRecord
	err   error
	calls int
	name  string
}

func (f *fakeAI) Extract(ctx context.Context, name string, doc []byte, mime string) (*domain.StatementRecord, error) {
	f.calls++
	f.name = name
	if f.err != nil {
		return nil, f.err
	}
	return f.rec.Clone(), nil
}

type fakeStorage struct {
	data map[string][]byte
}

func (f *fakeStorage) FetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	if b, ok := f.data[uri]; ok {
		return b, nil
	}
	return nil, errors.New("object not found")
}

func aiRecord() *domain.StatementRecord {
	rec := domain.NewStatementRecord()
	rec.Issuer = "Kotak Mahindra Bank"
	rec.Transactions = []domain.Transaction{
		domain.NewTransaction(domain.UnknownDate(), "NETFLIX", decimal.NewFromInt(649), domain.Debit),
	}
	rec.Transactions[0].Category = domain.CategoryEntertainment
	rec.Insights = []string{"Streaming is your top spend.", "1 TRANSACTIONS: 1 debits totalling ₹649.00 and 0 credits totalling ₹0.00."}
	return rec
}

func TestProcess_ParserPath(t *testing.T) {
	text := &fakeText{text: hdfcText}
	ai := &fakeAI{rec: aiRecord()}
	p := NewProcessor(Deps{Text: text, AI: ai})

	rec, err := p.Process(context.Background(), Document{Name: "hdfc.pdf", Data: pdfBytes})
	require.NoError(t, err)

	assert.Equal(t, 0, ai.calls, "AI is not used when the parser succeeds")
	assert.Equal(t, &domain.Source{Document: "hdfc.pdf", Method: "parser", Bank: "hdfc"}, rec.Source)
	assert.Equal(t, "1234", rec.CardLast4)
	require.Len(t, rec.Transactions, 3)
	assert.Equal(t, domain.CategoryFoodDining, rec.Transactions[0].Category)
	assert.Equal(t, domain.CategoryTransport, rec.Transactions[1].Category)
	assert.Equal(t, domain.CategoryPayment, rec.Transactions[2].Category)
	assert.NotEmpty(t, rec.Insights)
}

func TestProcess_AutoFallsBackToAI(t *testing.T) {
	ai := &fakeAI{rec: aiRecord()}
	p := NewProcessor(Deps{Text: &fakeText{text: "Statement from an unsupported bank"}, AI: ai})

	rec, err := p.Process(context.Background(), Document{Path: "/tmp/ignored.pdf", Data: pdfBytes})
	require.NoError(t, err)

	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, "ignored.pdf", ai.name)
	assert.Equal(t, &domain.Source{Document: "ignored.pdf", Method: "ai", Bank: "kotak"}, rec.Source)
	assert.Equal(t, domain.CategoryEntertainment, rec.Transactions[0].Category, "AI categories are not overwritten by the pipeline")

	require.Len(t, rec.Insights, 3)
	assert.True(t, strings.HasPrefix(rec.Insights[0], "Highest spending category: Entertainment"), "generated insights come first")
	assert.True(t, strings.HasPrefix(rec.Insights[1], "1 transactions:"))
	assert.Equal(t, "Streaming is your top spend.", rec.Insights[2], "duplicate oracle insight dropped")
}

func TestProcess_AutoFallsBackWhenNoText(t *testing.T) {
	ai := &fakeAI{rec: aiRecord()}
	p := NewProcessor(Deps{Text: &fakeText{err: textextract.ErrNoText}, AI: ai})

	_, err := p.Process(context.Background(), Document{Name: "scan.pdf", Data: pdfBytes})
	require.NoError(t, err)
	assert.Equal(t, 1, ai.calls)
}

func TestProcess_Errors(t *testing.T) {
	aiErr := &aivision.ExtractionError{Document: "a.pdf", Stage: aivision.StageDecode, Err: errors.New("unexpected end of JSON input")}

	tests := []struct {
		name    string
		deps    Deps
		doc     Document
		target  error
		message string
	}{
		{
			name:    "unknown bank without AI",
			deps:    Deps{Text: &fakeText{text: "no bank here"}},
			doc:     Document{Name: "a.pdf", Data: pdfBytes},
			target:  parser.ErrUnsupportedBank,
			message: "Error processing a.pdf: pipeline step extract failed: unsupported bank",
		},
		{
			name:    "AI failure keeps its message",
			deps:    Deps{Method: MethodAI, AI: &fakeAI{err: aiErr}},
			doc:     Document{Name: "a.pdf", Data: pdfBytes},
			target:  aiErr,
			message: "JSON parsing error in a.pdf: unexpected end of JSON input",
		},
		{
			name:    "AI method without oracle",
			deps:    Deps{Method: MethodAI},
			doc:     Document{Name: "a.pdf", Data: pdfBytes},
			target:  aivision.ErrNoOracle,
			message: "Error processing a.pdf: pipeline step extract failed: no AI oracle configured",
		},
		{
			name:    "not a statement",
			deps:    Deps{Text: &fakeText{text: hdfcText}},
			doc:     Document{Name: "notes.txt", Data: []byte("hello")},
			target:  ErrUnsupportedDocument,
			message: "Error processing notes.txt: pipeline step detect-mime failed: unsupported document: expected PDF, PNG or JPEG",
		},
		{
			name:   "empty document",
			deps:   Deps{Text: &fakeText{text: hdfcText}},
			doc:    Document{Name: "empty.pdf"},
			target: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewProcessor(tt.deps).Process(context.Background(), tt.doc)
			assert.Nil(t, rec)
			require.Error(t, err)

			var docErr *DocumentError
			require.ErrorAs(t, err, &docErr)
			assert.Equal(t, tt.doc.DisplayName(), docErr.Document)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestProcess_ParserMethodNeverCallsAI(t *testing.T) {
	ai := &fakeAI{rec: aiRecord()}
	_, err := NewProcessor(Deps{Method: MethodParser, Text: &fakeText{text: "unknown"}, AI: ai}).
		Process(context.Background(), Document{Name: "a.pdf", Data: pdfBytes})

	assert.ErrorIs(t, err, parser.ErrUnsupportedBank)
	assert.Equal(t, 0, ai.calls)
}

func TestProcess_DocumentMethodOverrides(t *testing.T) {
	text := &fakeText{text: hdfcText}
	ai := &fakeAI{rec: aiRecord()}
	p := NewProcessor(Deps{Method: MethodParser, Text: text, AI: ai})

	rec, err := p.Process(context.Background(), Document{Name: "hdfc.pdf", Data: pdfBytes, Method: MethodAI})
	require.NoError(t, err)
	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, 0, text.calls)
	assert.Equal(t, "ai", rec.Source.Method)
}

func TestLoadDocumentStep(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "local.pdf")
	require.NoError(t, os.WriteFile(local, pdfBytes, 0o600))

	storage := &fakeStorage{data: map[string][]byte{"gs://bucket/in/remote.pdf": pdfBytes}}
	step := &LoadDocumentStep{Storage: storage}

	for _, doc := range []Document{
		{Data: pdfBytes},
		{Path: local},
		{URI: "gs://bucket/in/remote.pdf"},
	} {
		state := &PipelineState{Document: doc}
		require.NoError(t, step.Execute(context.Background(), state))
		assert.Equal(t, pdfBytes, state.Data)
	}

	err := step.Execute(context.Background(), &PipelineState{Document: Document{URI: "gs://bucket/missing.pdf"}})
	assert.Error(t, err)

	err = (&LoadDocumentStep{}).Execute(context.Background(), &PipelineState{Document: Document{URI: "gs://b/x.pdf"}})
	assert.Error(t, err, "gs:// without storage")
}

func TestSniffMIME(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
		err  error
	}{
		{"pdf", []byte("%PDF-1.7\n..."), "application/pdf", nil},
		{"pdf with leading newline", []byte("\n%PDF-1.4"), "application/pdf", nil},
		{"png", []byte("\x89PNG\r\n\x1a\nrest"), "image/png", nil},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg", nil},
		{"text", []byte("hello"), "", ErrUnsupportedDocument},
		{"empty", nil, "", ErrUnsupportedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffMIME(tt.data)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "given.pdf", Document{Name: "given.pdf", Path: "/x/y.pdf"}.DisplayName())
	assert.Equal(t, "file.pdf", Document{URI: "gs://bucket/folder/file.pdf"}.DisplayName())
	assert.Equal(t, "y.pdf", Document{Path: "/x/y.pdf"}.DisplayName())
	assert.Equal(t, "document", Document{}.DisplayName())
	assert.Equal(t, "bucket", FilenameFromURI("gs://bucket"))
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": MethodAuto, "AI": MethodAI, " parser ": MethodParser, "auto": MethodAuto} {
		got, err := ParseMethod(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMethod("ocr")
	assert.Error(t, err)
}

func TestMergeInsights(t *testing.T) {
	got := MergeInsights([]string{"A", "b"}, []string{"a", " ", "C", "c"})
	assert.Equal(t, []string{"A", "b", "C"}, got)
	assert.NotNil(t, MergeInsights(nil, nil))
}

func TestValidateRecord(t *testing.T) {
	rec := &domain.StatementRecord{
		CardLast4: "1234567",
		StatementPeriod: domain.Period{
			From: domain.ParseDate("10-Feb-2024"),
			To:   domain.ParseDate("01-Feb-2024"),
		},
		Transactions: []domain.Transaction{
			{Description: "X", Amount: decimal.NewFromInt(-5), Type: domain.Debit, Category: "Crypto"},
		},
	}

	fixes := ValidateRecord(rec)

	assert.Len(t, fixes, 4)
	assert.Equal(t, domain.UnknownIssuer, rec.Issuer)
	assert.Equal(t, domain.NotAvailable, rec.CardType)
	assert.Equal(t, "4567", rec.CardLast4)
	assert.False(t, rec.StatementPeriod.From.Known())
	assert.Equal(t, domain.CategoryOther, rec.Transactions[0].Category)
	assert.Equal(t, domain.Credit, rec.Transactions[0].Type)
	assert.True(t, rec.Transactions[0].Amount.Equal(decimal.NewFromInt(5)))
	assert.NotNil(t, rec.Insights)

	assert.Empty(t, ValidateRecord(domain.NewStatementRecord()))
	assert.Nil(t, ValidateRecord(nil))
}
