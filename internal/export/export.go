// Package export renders statement records as JSON, CSV and XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/portfolio"
)

// JSON writes v with two-space indentation and no HTML escaping, so "₹" and
// "&" come out as written.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

var transactionHeader = []string{"date", "description", "amount", "type", "category"}

// TransactionsCSV writes one row per transaction. With more than one record a
// leading card column identifies the statement each row came from.
func TransactionsCSV(w io.Writer, records []*domain.StatementRecord) error {
	records = nonNil(records)
	multi := len(records) > 1

	cw := csv.NewWriter(w)
	header := transactionHeader
	if multi {
		header = append([]string{"card"}, transactionHeader...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		card := rec.CardID()
		for _, tx := range rec.Transactions {
			row := []string{tx.Date.String(), tx.Description, tx.Amount.StringFixed(2), string(tx.Type), string(tx.Category)}
			if multi {
				row = append([]string{card}, row...)
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write transaction: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ComparisonCSV writes the side-by-side card comparison.
func ComparisonCSV(w io.Writer, records []*domain.StatementRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"issuer", "card_type", "card_last_4", "total_due", "credit_limit", "due_date", "utilization"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range portfolio.Compare(records) {
		err := cw.Write([]string{
			row.Issuer,
			row.CardType,
			row.Last4,
			nullText(row.TotalDue),
			nullText(row.CreditLimit),
			row.DueDate.String(),
			row.Utilization,
		})
		if err != nil {
			return fmt.Errorf("write comparison row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	summarySheet      = "Summary"
	transactionsSheet = "Transactions"
)

// Spreadsheet builds an XLSX workbook for a single statement.
func Spreadsheet(rec *domain.StatementRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("spreadsheet: nil record")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	summary := [][]any{
		{"Field", "Value"},
		{"Issuer", rec.Issuer},
		{"Card type", rec.CardType},
		{"Card last 4", rec.CardLast4},
		{"Customer", orNA(rec.CustomerName)},
		{"Statement from", rec.StatementPeriod.From.String()},
		{"Statement to", rec.StatementPeriod.To.String()},
		{"Payment due date", rec.PaymentDueDate.String()},
		{"Total amount due", nullCell(rec.TotalAmountDue)},
		{"Minimum amount due", nullCell(rec.MinimumAmountDue)},
		{"Credit limit", nullCell(rec.CreditLimit)},
		{"Available credit", nullCell(rec.AvailableCreditLimit)},
	}
	if u, ok := rec.Utilization(); ok {
		summary = append(summary, []any{"Utilization %", u.Round(1).InexactFloat64()})
	}
	if rp := rec.RewardsPoints; rp != nil {
		summary = append(summary,
			[]any{"Rewards earned", rp.Earned},
			[]any{"Rewards redeemed", rp.Redeemed},
			[]any{"Rewards balance", rp.Balance},
		)
	}
	for _, insight := range rec.Insights {
		summary = append(summary, []any{"Insight", insight})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	txRows := make([][]any, 0, len(rec.Transactions)+1)
	txRows = append(txRows, []any{"Date", "Description", "Amount", "Type", "Category"})
	for _, tx := range rec.Transactions {
		txRows = append(txRows, []any{tx.Date.String(), tx.Description, tx.Amount.InexactFloat64(), string(tx.Type), string(tx.Category)})
	}
	if err := writeRows(f, transactionsSheet, txRows); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 22)
	_ = f.SetColWidth(summarySheet, "B", "B", 60)
	_ = f.SetColWidth(transactionsSheet, "A", "A", 14)
	_ = f.SetColWidth(transactionsSheet, "B", "B", 48)
	_ = f.SetColWidth(transactionsSheet, "C", "E", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func nonNil(records []*domain.StatementRecord) []*domain.StatementRecord {
	out := make([]*domain.StatementRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func nullText(d decimal.NullDecimal) string {
	if !d.Valid {
		return domain.NotAvailable
	}
	return d.Decimal.StringFixed(2)
}

func nullCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return domain.NotAvailable
	}
	return d.Decimal.InexactFloat64()
}

func orNA(s string) string {
	if s == "" {
		return domain.NotAvailable
	}
	return s
}
