// Package insights derives short human-readable observations from a statement.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/amount"
	"github.com/dvloznov/statement-analyzer/internal/domain"
)

const (
	dueSoonDays          = 7
	highUtilization      = 75
	moderateUtilization  = 30
	largeTxMultiplier    = 3
	largeTxMinimumDebits = 3
)

// Rule produces at most one insight. ok=false means its preconditions were not met.
type Rule func(rec *domain.StatementRecord, now time.Time) (insight string, ok bool)

// Generator evaluates rules in order.
type Generator struct {
	Now   func() time.Time
	Rules []Rule
}

// New returns a generator with the default rules and the wall clock.
func New() *Generator {
	return &Generator{
		Now:   time.Now,
		Rules: DefaultRules(),
	}
}

// DefaultRules returns the standard rule list in output order.
func DefaultRules() []Rule {
	return []Rule{
		TopCategory,
		UtilizationLevel,
		DueDateProximity,
		LargeTransaction,
		MinimumPaymentWarning,
		ActivitySummary,
	}
}

// Generate returns the insights for rec. An empty statement yields an empty,
// non-nil slice.
func (g *Generator) Generate(rec *domain.StatementRecord) []string {
	out := []string{}
	if rec == nil || len(rec.Transactions) == 0 {
		return out
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	for _, rule := range g.Rules {
		if s, ok := rule(rec, now); ok {
			out = append(out, s)
		}
	}
	return out
}

// Generate runs the default generator against the wall clock.
func Generate(rec *domain.StatementRecord) []string {
	return New().Generate(rec)
}

// TopCategory names the category with the highest debit spend.
func TopCategory(rec *domain.StatementRecord, _ time.Time) (string, bool) {
	totals := map[domain.Category]decimal.Decimal{}
	spend := decimal.Zero
	for _, tx := range rec.Transactions {
		if !tx.IsDebit() {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
		spend = spend.Add(tx.Amount)
	}
	if len(totals) == 0 || !spend.IsPositive() {
		return "", false
	}

	cats := make([]domain.Category, 0, len(totals))
	for c := range totals {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cmp := totals[cats[i]].Cmp(totals[cats[j]]); cmp != 0 {
			return cmp > 0
		}
		return cats[i] < cats[j]
	})

	top := cats[0]
	share := totals[top].Div(spend).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("Highest spending category: %s (%s, %s%% of spend)",
		top, amount.Format(totals[top]), share.StringFixed(1)), true
}

// UtilizationLevel reports total due against the credit limit.
func UtilizationLevel(rec *domain.StatementRecord, _ time.Time) (string, bool) {
	u, ok := rec.Utilization()
	if !ok {
		return "", false
	}
	pct := u.StringFixed(1)
	limit := amount.Format(rec.CreditLimit.Decimal)
	switch {
	case u.GreaterThanOrEqual(decimal.NewFromInt(highUtilization)):
		return fmt.Sprintf("High credit utilization: %s%% of your %s limit. Paying down the balance will help your credit score.", pct, limit), true
	case u.GreaterThanOrEqual(decimal.NewFromInt(moderateUtilization)):
		return fmt.Sprintf("Moderate credit utilization: %s%% of your %s limit. Keeping it under 30%% is recommended.", pct, limit), true
	default:
		return fmt.Sprintf("Healthy credit utilization: %s%% of your %s limit.", pct, limit), true
	}
}

// DueDateProximity warns when the payment due date is close or past.
func DueDateProximity(rec *domain.StatementRecord, now time.Time) (string, bool) {
	if !rec.PaymentDueDate.Known() {
		return "", false
	}
	today := domain.DateOf(now).Time()
	days := int(rec.PaymentDueDate.Time().Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return fmt.Sprintf("Payment due date %s has passed. Pay immediately to avoid late fees.", rec.PaymentDueDate), true
	case days == 0:
		return fmt.Sprintf("Payment is due today (%s).", rec.PaymentDueDate), true
	case days <= dueSoonDays:
		return fmt.Sprintf("Payment due in %d day(s) on %s.", days, rec.PaymentDueDate), true
	}
	return "", false
}

// LargeTransaction flags the biggest debit when it dwarfs the average.
func LargeTransaction(rec *domain.StatementRecord, _ time.Time) (string, bool) {
	var debits []domain.Transaction
	sum := decimal.Zero
	for _, tx := range rec.Transactions {
		if tx.IsDebit() {
			debits = append(debits, tx)
			sum = sum.Add(tx.Amount)
		}
	}
	if len(debits) < largeTxMinimumDebits {
		return "", false
	}

	largest := debits[0]
	for _, tx := range debits[1:] {
		if tx.Amount.GreaterThan(largest.Amount) {
			largest = tx
		}
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(debits))))
	if largest.Amount.LessThan(mean.Mul(decimal.NewFromInt(largeTxMultiplier))) {
		return "", false
	}
	return fmt.Sprintf("Unusually large transaction: %s at %s on %s.",
		amount.Format(largest.Amount), largest.Description, largest.Date), true
}

// MinimumPaymentWarning points out the balance left over after a minimum payment.
func MinimumPaymentWarning(rec *domain.StatementRecord, _ time.Time) (string, bool) {
	if !rec.MinimumAmountDue.Valid || !rec.TotalAmountDue.Valid {
		return "", false
	}
	minDue, total := rec.MinimumAmountDue.Decimal, rec.TotalAmountDue.Decimal
	if !minDue.IsPositive() || !minDue.LessThan(total) {
		return "", false
	}
	return fmt.Sprintf("Paying only the minimum %s leaves %s to accrue interest.",
		amount.Format(minDue), amount.Format(total.Sub(minDue))), true
}

// ActivitySummary counts debits and credits. It fires whenever the
// statement has transactions.
func ActivitySummary(rec *domain.StatementRecord, _ time.Time) (string, bool) {
	if len(rec.Transactions) == 0 {
		return "", false
	}
	var nDebit, nCredit int
	debit, credit := decimal.Zero, decimal.Zero
	for _, tx := range rec.Transactions {
		if tx.IsDebit() {
			nDebit++
			debit = debit.Add(tx.Amount)
		} else {
			nCredit++
			credit = credit.Add(tx.Amount)
		}
	}
	return fmt.Sprintf("%d transactions: %d debits totalling %s and %d credits totalling %s.",
		len(rec.Transactions), nDebit, amount.Format(debit), nCredit, amount.Format(credit)), true
}
