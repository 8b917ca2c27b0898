package aivision

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/amount"
	"github.com/dvloznov/statement-analyzer/internal/domain"
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateResponse checks decoded model output against the statement schema.
func ValidateResponse(v any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// StripCodeFence removes Markdown fences and any text around the outermost
// JSON object.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// flexValue accepts a JSON string, number or null.
type flexValue struct {
	raw   string
	valid bool
}

func (f *flexValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = flexValue{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexValue{raw: s, valid: true}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = flexValue{raw: n.String(), valid: true}
	}
	return nil
}

func (f flexValue) text() string {
	if !f.valid {
		return ""
	}
	return strings.TrimSpace(f.raw)
}

// nullAmount is unknown for null, empty or N/A values and for text that is
// not a number.
func (f flexValue) nullAmount() decimal.NullDecimal {
	s := f.text()
	if s == "" || strings.EqualFold(s, domain.NotAvailable) {
		return decimal.NullDecimal{}
	}
	d, ok := amount.ParseOK(s)
	if !ok {
		return decimal.NullDecimal{}
	}
	return domain.Known(d)
}

func (f flexValue) points() int64 {
	d := amount.Parse(f.text())
	return d.IntPart()
}

type wireTransaction struct {
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Amount      flexValue `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
}

type wireRecord struct {
	Issuer          string    `json:"issuer"`
	CustomerName    string    `json:"customer_name"`
	CardType        string    `json:"card_type"`
	CardLast4       flexValue `json:"card_last_4"`
	StatementPeriod *struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"statement_period"`
	PaymentDueDate       string            `json:"payment_due_date"`
	CreditLimit          flexValue         `json:"credit_limit"`
	AvailableCreditLimit flexValue         `json:"available_credit_limit"`
	TotalAmountDue       flexValue         `json:"total_amount_due"`
	MinimumAmountDue     flexValue         `json:"minimum_amount_due"`
	RewardsPoints        *wireRewards      `json:"rewards_points"`
	Transactions         []wireTransaction `json:"transactions"`
	Insights             []string          `json:"insights"`
}

type wireRewards struct {
	Earned   flexValue `json:"earned"`
	Redeemed flexValue `json:"redeemed"`
	Balance  flexValue `json:"balance"`
}

// record converts the wire shape, applying the same normalization the text
// parsers get. Oracle categories are kept as hints; the caller decides
// whether to trust them.
func (w *wireRecord) record() *domain.StatementRecord {
	rec := domain.NewStatementRecord()
	if s := collapse(w.Issuer); s != "" && !strings.EqualFold(s, domain.NotAvailable) {
		rec.Issuer = s
	}
	rec.CustomerName = collapse(w.CustomerName)
	if s := collapse(w.CardType); s != "" {
		rec.CardType = s
	}
	rec.CardLast4 = domain.NormalizeLast4(w.CardLast4.text())

	if w.StatementPeriod != nil {
		rec.StatementPeriod = domain.NewPeriod(
			domain.ParseDate(w.StatementPeriod.From),
			domain.ParseDate(w.StatementPeriod.To),
		)
	}
	rec.PaymentDueDate = domain.ParseDate(w.PaymentDueDate)

	rec.CreditLimit = w.CreditLimit.nullAmount()
	rec.AvailableCreditLimit = w.AvailableCreditLimit.nullAmount()
	rec.TotalAmountDue = w.TotalAmountDue.nullAmount()
	rec.MinimumAmountDue = w.MinimumAmountDue.nullAmount()

	if r := w.RewardsPoints; r != nil {
		rec.RewardsPoints = &domain.RewardsPoints{
			Earned:   r.Earned.points(),
			Redeemed: r.Redeemed.points(),
			Balance:  r.Balance.points(),
		}
	}

	for _, wt := range w.Transactions {
		desc := collapse(wt.Description)
		if desc == "" {
			continue
		}
		tx := domain.NewTransaction(
			domain.ParseDate(wt.Date),
			desc,
			amount.Parse(wt.Amount.text()),
			domain.ParseTxType(wt.Type),
		)
		tx.Category = domain.ParseCategory(wt.Category)
		rec.Transactions = append(rec.Transactions, tx)
	}

	for _, s := range w.Insights {
		if s = strings.TrimSpace(s); s != "" {
			rec.Insights = append(rec.Insights, s)
		}
	}
	return rec
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
