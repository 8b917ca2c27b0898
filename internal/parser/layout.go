package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/amount"
	"github.com/dvloznov/statement-analyzer/internal/detect"
	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// amountExpr captures a header amount with an optional currency prefix.
const amountExpr = `((?:rs\.?|inr|₹)?\s*-?[\d,]+(?:\.\d+)?)`

// layout is the set of label and row patterns for one bank's statement.
// Every pattern captures its value in group 1, except period (from, to) and
// txLine (named groups date, desc, amount and optional dir).
type layout struct {
	bank        detect.Bank
	issuer      string
	dateLayouts []string

	cardType       *regexp.Regexp
	customerName   *regexp.Regexp
	cardNumber     *regexp.Regexp
	period         *regexp.Regexp
	dueDate        *regexp.Regexp
	totalDue       *regexp.Regexp
	minimumDue     *regexp.Regexp
	creditLimit    *regexp.Regexp
	availableLimit *regexp.Regexp

	rewardsEarned   *regexp.Regexp
	rewardsRedeemed *regexp.Regexp
	rewardsBalance  *regexp.Regexp

	txLine *regexp.Regexp
}

// layoutParser applies a layout to extracted text.
type layoutParser struct {
	l layout
}

func newLayoutParser(l layout) *layoutParser {
	return &layoutParser{l: l}
}

func (p *layoutParser) Bank() detect.Bank { return p.l.bank }

// Parse extracts a best-effort record. Fields whose label is missing or
// ambiguous stay unknown; rows that do not fully match are skipped.
func (p *layoutParser) Parse(text string) *domain.StatementRecord {
	l := p.l
	rec := domain.NewStatementRecord()
	rec.Issuer = l.issuer

	if v, ok := uniqueText(l.cardType, text); ok {
		rec.CardType = v
	}
	if v, ok := uniqueText(l.customerName, text); ok {
		rec.CustomerName = v
	}
	if v, ok := uniqueValue(l.cardNumber, text, domain.NormalizeLast4); ok {
		rec.CardLast4 = v
	}

	rec.StatementPeriod = p.period(text)
	rec.PaymentDueDate = p.date(l.dueDate, text)

	rec.TotalAmountDue = headerAmount(l.totalDue, text)
	rec.MinimumAmountDue = headerAmount(l.minimumDue, text)
	rec.CreditLimit = headerAmount(l.creditLimit, text)
	rec.AvailableCreditLimit = headerAmount(l.availableLimit, text)

	rec.RewardsPoints = p.rewards(text)
	rec.Transactions = p.transactions(text)
	return rec
}

func (p *layoutParser) parseDate(s string) domain.Date {
	return domain.ParseDateLayouts(s, p.l.dateLayouts...)
}

func (p *layoutParser) date(re *regexp.Regexp, text string) domain.Date {
	v, ok := uniqueValue(re, text, func(s string) string { return p.parseDate(s).String() })
	if !ok {
		return domain.UnknownDate()
	}
	return domain.ParseDate(v)
}

func (p *layoutParser) period(text string) domain.Period {
	if p.l.period == nil {
		return domain.Period{}
	}
	matches := p.l.period.FindAllStringSubmatch(text, -1)
	var from, to domain.Date
	for i, m := range matches {
		if len(m) < 3 {
			return domain.Period{}
		}
		f, t := p.parseDate(m[1]), p.parseDate(m[2])
		if i > 0 && (!f.Equal(from) || !t.Equal(to)) {
			return domain.Period{}
		}
		from, to = f, t
	}
	return domain.NewPeriod(from, to)
}

func (p *layoutParser) rewards(text string) *domain.RewardsPoints {
	earned, okE := points(p.l.rewardsEarned, text)
	redeemed, okR := points(p.l.rewardsRedeemed, text)
	balance, okB := points(p.l.rewardsBalance, text)
	if !okE && !okR && !okB {
		return nil
	}
	return &domain.RewardsPoints{Earned: earned, Redeemed: redeemed, Balance: balance}
}

func (p *layoutParser) transactions(text string) []domain.Transaction {
	txs := []domain.Transaction{}
	if p.l.txLine == nil {
		return txs
	}
	idx := map[string]int{}
	for i, name := range p.l.txLine.SubexpNames() {
		if name != "" {
			idx[name] = i
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		m := p.l.txLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tx, ok := p.row(m, idx)
		if !ok {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func (p *layoutParser) row(m []string, idx map[string]int) (domain.Transaction, bool) {
	group := func(name string) string {
		if i, ok := idx[name]; ok && i < len(m) {
			return strings.TrimSpace(m[i])
		}
		return ""
	}

	date := p.parseDate(group("date"))
	desc := group("desc")
	amt, ok := amount.ParseOK(group("amount"))
	if !date.Known() || desc == "" || !ok || amt.IsZero() {
		return domain.Transaction{}, false
	}

	typ := domain.Debit
	if dir := group("dir"); dir != "" {
		typ = domain.ParseTxType(dir)
	}
	return domain.NewTransaction(date, desc, amt, typ), true
}

// uniqueValue returns the normalized group-1 value when every match agrees.
// No match, or matches that disagree, report false.
func uniqueValue(re *regexp.Regexp, text string, norm func(string) string) (string, bool) {
	if re == nil {
		return "", false
	}
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	var value string
	for i, m := range matches {
		if len(m) < 2 {
			return "", false
		}
		v := norm(strings.TrimSpace(m[1]))
		if i > 0 && v != value {
			return "", false
		}
		value = v
	}
	if value == "" || value == domain.NotAvailable {
		return "", false
	}
	return value, true
}

func uniqueText(re *regexp.Regexp, text string) (string, bool) {
	return uniqueValue(re, text, func(s string) string { return strings.Join(strings.Fields(s), " ") })
}

func headerAmount(re *regexp.Regexp, text string) decimal.NullDecimal {
	v, ok := uniqueValue(re, text, func(s string) string {
		d, ok := amount.ParseOK(s)
		if !ok {
			return ""
		}
		return d.String()
	})
	if !ok {
		return decimal.NullDecimal{}
	}
	return domain.Known(decimal.RequireFromString(v))
}

func points(re *regexp.Regexp, text string) (int64, bool) {
	v, ok := uniqueValue(re, text, func(s string) string { return strings.ReplaceAll(s, ",", "") })
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func mustCompile(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}
