package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/batch"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/export"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/portfolio"
)

const (
	// DefaultMaxUploadBytes bounds one multipart request.
	DefaultMaxUploadBytes = 50 << 20
	uploadField           = "files"
	topTransactions       = 10
)

// StatementsHandler serves uploads, the current batch and its exports.
type StatementsHandler struct {
	session  *batch.Session
	maxBytes int64
	log      zerolog.Logger
}

// NewStatementsHandler creates a statements handler over session.
func NewStatementsHandler(session *batch.Session, maxBytes int64, log zerolog.Logger) *StatementsHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &StatementsHandler{session: session, maxBytes: maxBytes, log: log}
}

// ResultView is the JSON form of one document outcome.
type ResultView struct {
	Document   string                  `json:"document"`
	Record     *domain.StatementRecord `json:"record,omitempty"`
	Error      string                  `json:"error,omitempty"`
	DurationMS int64                   `json:"duration_ms"`
}

// BatchView is the JSON form of a batch.
type BatchView struct {
	ID        string       `json:"batch_id"`
	CreatedAt time.Time    `json:"created_at"`
	Reused    bool         `json:"reused"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []ResultView `json:"results"`
}

func newBatchView(b *batch.Batch, reused bool) BatchView {
	v := BatchView{ID: b.ID, CreatedAt: b.CreatedAt, Reused: reused, Results: make([]ResultView, 0, len(b.Results))}
	for _, res := range b.Results {
		rv := ResultView{Document: res.Document, Record: res.Record, DurationMS: res.Duration.Milliseconds()}
		if res.Err != nil {
			rv.Error = res.Err.Error()
			v.Failed++
		} else {
			v.Succeeded++
		}
		v.Results = append(v.Results, rv)
	}
	return v
}

// Upload handles POST /api/statements
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	method, err := pipeline.ParseMethod(r.FormValue("method"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "At least one file is required in field \"files\"")
		return
	}

	docs := make([]pipeline.Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Cannot read %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Cannot read %s", fh.Filename))
			return
		}
		// Unsupported files fail on their own inside the batch.
		docs = append(docs, pipeline.Document{Name: fh.Filename, Data: data, Method: method})
	}

	b, reused := h.session.Submit(r.Context(), docs)
	h.log.Info().
		Str("batch_id", b.ID).
		Int("documents", len(docs)).
		Bool("reused", reused).
		Msg("Statements processed")

	middleware.WriteJSON(w, http.StatusOK, newBatchView(b, reused))
}

// Current handles GET /api/statements
func (h *StatementsHandler) Current(w http.ResponseWriter, r *http.Request) {
	b := h.session.Current()
	if b == nil {
		middleware.WriteError(w, http.StatusNotFound, "No statements processed yet")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, newBatchView(b, false))
}

// Reset handles DELETE /api/statements
func (h *StatementsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/statements/export?format=json|csv|comparison|xlsx
func (h *StatementsHandler) Export(w http.ResponseWriter, r *http.Request) {
	b := h.session.Current()
	if b == nil {
		middleware.WriteError(w, http.StatusNotFound, "No statements processed yet")
		return
	}
	records := b.Records()

	var (
		buf         bytes.Buffer
		contentType string
		filename    string
		err         error
	)
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		contentType, filename = "application/json; charset=utf-8", "statements.json"
		err = export.JSON(&buf, records)
	case "csv":
		contentType, filename = "text/csv; charset=utf-8", "transactions.csv"
		err = export.TransactionsCSV(&buf, records)
	case "comparison":
		contentType, filename = "text/csv; charset=utf-8", "comparison.csv"
		err = export.ComparisonCSV(&buf, records)
	case "xlsx":
		rec, selErr := selectRecord(records, r.URL.Query().Get("card"))
		if selErr != nil {
			middleware.WriteError(w, http.StatusBadRequest, selErr.Error())
			return
		}
		var data []byte
		data, err = export.Spreadsheet(rec)
		buf.Write(data)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "statement.xlsx"
	default:
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown export format %q", format))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Export failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// selectRecord picks the record named by card, matched against the card ID
// or the last four digits. Without card the batch must hold exactly one record.
func selectRecord(records []*domain.StatementRecord, card string) (*domain.StatementRecord, error) {
	if card == "" {
		if len(records) != 1 {
			return nil, fmt.Errorf("xlsx export covers one card; pass ?card= (have %d)", len(records))
		}
		return records[0], nil
	}
	for _, rec := range records {
		if strings.EqualFold(rec.CardID(), card) || (rec.HasLast4() && rec.CardLast4 == card) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no statement for card %q", card)
}

// PortfolioView bundles the cross-card analytics.
type PortfolioView struct {
	Summary             portfolio.Summary             `json:"summary"`
	Comparison          []portfolio.ComparisonRow     `json:"comparison"`
	CategorySpend       []portfolio.CategoryTotal     `json:"category_spend"`
	CategorySpendByCard []portfolio.CardCategoryTotal `json:"category_spend_by_card"`
	Counts              portfolio.TxCounts            `json:"counts"`
	DailySpend          []portfolio.DailyTotal        `json:"daily_spend"`
	TopTransactions     []portfolio.CardTransaction   `json:"top_transactions"`
}

// Portfolio handles GET /api/portfolio
func (h *StatementsHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	var records []*domain.StatementRecord
	if b := h.session.Current(); b != nil {
		records = b.Records()
	}
	middleware.WriteJSON(w, http.StatusOK, PortfolioView{
		Summary:             portfolio.Summarize(records),
		Comparison:          portfolio.Compare(records),
		CategorySpend:       portfolio.CategorySpend(records),
		CategorySpendByCard: portfolio.CategorySpendByCard(records),
		Counts:              portfolio.Counts(records),
		DailySpend:          portfolio.DailySpend(records),
		TopTransactions:     portfolio.TopTransactions(records, topTransactions),
	})
}
