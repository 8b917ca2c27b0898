package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// ValidateRecord repairs invariant violations in place and reports each fix.
// Categories outside the taxonomy become Other, negative amounts become
// credits and malformed card suffixes become N/A.
func ValidateRecord(rec *domain.StatementRecord) []string {
	if rec == nil {
		return nil
	}
	var fixes []string

	if rec.Issuer == "" {
		rec.Issuer = domain.UnknownIssuer
	}
	if rec.CardType == "" {
		rec.CardType = domain.NotAvailable
	}
	if last4 := domain.NormalizeLast4(rec.CardLast4); last4 != rec.CardLast4 {
		fixes = append(fixes, fmt.Sprintf("card_last_4 %q normalized to %q", rec.CardLast4, last4))
		rec.CardLast4 = last4
	}

	p := rec.StatementPeriod
	if p.From.Known() && p.To.Known() && p.To.Before(p.From) {
		fixes = append(fixes, "inverted statement_period cleared")
		rec.StatementPeriod = domain.Period{}
	}

	if rec.Transactions == nil {
		rec.Transactions = []domain.Transaction{}
	}
	for i := range rec.Transactions {
		tx := &rec.Transactions[i]
		if !tx.Category.Valid() {
			fixes = append(fixes, fmt.Sprintf("transaction %d: invalid category %q", i, tx.Category))
			tx.Category = domain.CategoryOther
		}
		if tx.Amount.IsNegative() {
			fixes = append(fixes, fmt.Sprintf("transaction %d: negative amount", i))
			tx.Amount = tx.Amount.Abs()
			tx.Type = domain.Credit
		}
	}
	if rec.Insights == nil {
		rec.Insights = []string{}
	}
	return fixes
}

// ValidateStep applies ValidateRecord and logs the repairs.
type ValidateStep struct{}

func (s *ValidateStep) Name() string { return "validate" }

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	fixes := ValidateRecord(state.Record)
	if len(fixes) > 0 {
		log := logger.FromContext(ctx)
		log.Warn().Strs("fixes", fixes).Msg("Repaired statement record")
	}
	return nil
}
