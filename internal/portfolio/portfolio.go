// Package portfolio aggregates several statements into cross-card views.
// Every function is a pure fold over its input.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Summary totals known header values across cards.
type Summary struct {
	Cards            int                 `json:"cards"`
	TotalDue         decimal.Decimal     `json:"total_due"`
	TotalCreditLimit decimal.Decimal     `json:"total_credit_limit"`
	TotalAvailable   decimal.Decimal     `json:"total_available"`
	AvgUtilization   decimal.NullDecimal `json:"avg_utilization"`
}

// Summarize sums known values; unknown fields contribute nothing.
func Summarize(records []*domain.StatementRecord) Summary {
	s := Summary{TotalDue: decimal.Zero, TotalCreditLimit: decimal.Zero, TotalAvailable: decimal.Zero}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		s.Cards++
		if rec.TotalAmountDue.Valid {
			s.TotalDue = s.TotalDue.Add(rec.TotalAmountDue.Decimal)
		}
		if rec.CreditLimit.Valid {
			s.TotalCreditLimit = s.TotalCreditLimit.Add(rec.CreditLimit.Decimal)
		}
		if rec.AvailableCreditLimit.Valid {
			s.TotalAvailable = s.TotalAvailable.Add(rec.AvailableCreditLimit.Decimal)
		}
	}
	if s.TotalCreditLimit.IsPositive() {
		s.AvgUtilization = domain.Known(s.TotalDue.Div(s.TotalCreditLimit).Mul(hundred))
	}
	return s
}

// ComparisonRow is one card in the side-by-side view.
type ComparisonRow struct {
	Issuer      string              `json:"issuer"`
	CardType    string              `json:"card_type"`
	Last4       string              `json:"card_last_4"`
	TotalDue    decimal.NullDecimal `json:"total_due"`
	CreditLimit decimal.NullDecimal `json:"credit_limit"`
	DueDate     domain.Date         `json:"due_date"`
	Utilization string              `json:"utilization"`
}

// Compare returns one row per record in input order.
func Compare(records []*domain.StatementRecord) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		util := domain.NotAvailable
		if u, ok := rec.Utilization(); ok {
			util = fmt.Sprintf("%s%%", u.StringFixed(1))
		}
		rows = append(rows, ComparisonRow{
			Issuer:      rec.Issuer,
			CardType:    rec.CardType,
			Last4:       rec.CardLast4,
			TotalDue:    rec.TotalAmountDue,
			CreditLimit: rec.CreditLimit,
			DueDate:     rec.PaymentDueDate,
			Utilization: util,
		})
	}
	return rows
}

// CategoryTotal is the debit spend of one category.
type CategoryTotal struct {
	Category domain.Category `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategorySpend totals debits per category, largest first, ties by name.
func CategorySpend(records []*domain.StatementRecord) []CategoryTotal {
	totals := map[domain.Category]decimal.Decimal{}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		addDebits(totals, rec.Transactions)
	}
	return sortedTotals(totals)
}

// CardCategoryTotal is the debit spend of one category on one card.
type CardCategoryTotal struct {
	Card     string          `json:"card"`
	Category domain.Category `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategorySpendByCard totals debits per card and category. Cards keep input
// order; categories within a card follow CategorySpend ordering.
func CategorySpendByCard(records []*domain.StatementRecord) []CardCategoryTotal {
	var out []CardCategoryTotal
	for _, rec := range records {
		if rec == nil {
			continue
		}
		totals := map[domain.Category]decimal.Decimal{}
		addDebits(totals, rec.Transactions)
		for _, ct := range sortedTotals(totals) {
			out = append(out, CardCategoryTotal{Card: rec.CardID(), Category: ct.Category, Amount: ct.Amount})
		}
	}
	return out
}

func addDebits(totals map[domain.Category]decimal.Decimal, txs []domain.Transaction) {
	for _, tx := range txs {
		if tx.IsDebit() {
			totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
		}
	}
}

func sortedTotals(totals map[domain.Category]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for c, amt := range totals {
		out = append(out, CategoryTotal{Category: c, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TxCounts counts transactions by direction.
type TxCounts struct {
	Total  int `json:"total"`
	Debit  int `json:"debit"`
	Credit int `json:"credit"`
}

// Counts tallies transactions across records.
func Counts(records []*domain.StatementRecord) TxCounts {
	var c TxCounts
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, tx := range rec.Transactions {
			c.Total++
			if tx.IsDebit() {
				c.Debit++
			} else {
				c.Credit++
			}
		}
	}
	return c
}

// DailyTotal is the debit spend of one day.
type DailyTotal struct {
	Date   domain.Date     `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// DailySpend totals debits per known date in ascending date order.
func DailySpend(records []*domain.StatementRecord) []DailyTotal {
	byDay := map[domain.Date]decimal.Decimal{}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, tx := range rec.Transactions {
			if tx.IsDebit() && tx.Date.Known() {
				byDay[tx.Date] = byDay[tx.Date].Add(tx.Amount)
			}
		}
	}
	out := make([]DailyTotal, 0, len(byDay))
	for d, amt := range byDay {
		out = append(out, DailyTotal{Date: d, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CardTransaction is a transaction tagged with its card.
type CardTransaction struct {
	Card string `json:"card"`
	domain.Transaction
}

// TopTransactions returns the n largest debits. Equal amounts keep input order.
func TopTransactions(records []*domain.StatementRecord, n int) []CardTransaction {
	var all []CardTransaction
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, tx := range rec.Transactions {
			if tx.IsDebit() {
				all = append(all, CardTransaction{Card: rec.CardID(), Transaction: tx})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Amount.GreaterThan(all[j].Amount) })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
