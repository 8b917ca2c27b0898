package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownIssuer is used when the issuing bank cannot be identified.
const UnknownIssuer = "Unknown"

// TxType carries the direction of a transaction.
type TxType string

const (
	Debit  TxType = "Debit"
	Credit TxType = "Credit"
)

// ParseTxType maps Credit/CR/C (any case) to Credit and everything else to Debit.
func ParseTxType(s string) TxType {
	switch strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "."))) {
	case "CREDIT", "CR", "C":
		return Credit
	}
	return Debit
}

// Transaction is one statement line. Amount is a magnitude; the direction
// lives in Type.
type Transaction struct {
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	Category    Category        `json:"category"`
}

// NewTransaction normalizes a signed amount into magnitude plus direction.
// A negative amount is treated as a credit.
func NewTransaction(date Date, description string, amt decimal.Decimal, typ TxType) Transaction {
	if amt.IsNegative() {
		amt = amt.Abs()
		typ = Credit
	}
	if typ != Credit {
		typ = Debit
	}
	return Transaction{
		Date:        date,
		Description: strings.Join(strings.Fields(description), " "),
		Amount:      amt,
		Type:        typ,
		Category:    CategoryOther,
	}
}

// IsDebit reports whether the transaction is spend.
func (t Transaction) IsDebit() bool { return t.Type != Credit }

// RewardsPoints summarises the loyalty section of a statement.
type RewardsPoints struct {
	Earned   int64 `json:"earned"`
	Redeemed int64 `json:"redeemed"`
	Balance  int64 `json:"balance"`
}

// Source records where a record came from.
type Source struct {
	Document string `json:"document,omitempty"`
	Method   string `json:"method,omitempty"`
	Bank     string `json:"bank,omitempty"`
}

// StatementRecord is the canonical shape every extraction path produces.
// Header amounts come from the document, never from the transaction list.
type StatementRecord struct {
	Issuer               string              `json:"issuer"`
	CustomerName         string              `json:"customer_name,omitempty"`
	CardType             string              `json:"card_type"`
	CardLast4            string              `json:"card_last_4"`
	StatementPeriod      Period              `json:"statement_period"`
	PaymentDueDate       Date                `json:"payment_due_date"`
	CreditLimit          decimal.NullDecimal `json:"credit_limit"`
	AvailableCreditLimit decimal.NullDecimal `json:"available_credit_limit"`
	TotalAmountDue       decimal.NullDecimal `json:"total_amount_due"`
	MinimumAmountDue     decimal.NullDecimal `json:"minimum_amount_due"`
	Transactions         []Transaction       `json:"transactions"`
	Insights             []string            `json:"insights"`
	RewardsPoints        *RewardsPoints      `json:"rewards_points,omitempty"`
	Source               *Source             `json:"source,omitempty"`
}

// NewStatementRecord returns a record with every field explicitly unknown.
func NewStatementRecord() *StatementRecord {
	return &StatementRecord{
		Issuer:       UnknownIssuer,
		CardType:     NotAvailable,
		CardLast4:    NotAvailable,
		Transactions: []Transaction{},
		Insights:     []string{},
	}
}

// Known wraps a decimal as a present header value.
func Known(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NormalizeLast4 extracts the trailing four digits of a (possibly masked)
// card number. Inputs with fewer than four trailing digits yield N/A.
func NormalizeLast4(s string) string {
	var digits []rune
	for _, r := range strings.TrimRight(strings.TrimSpace(s), ".,;:)") {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, r)
		case r == ' ' || r == '-':
			// separators inside the number
		default:
			digits = digits[:0]
		}
	}
	if len(digits) < 4 {
		return NotAvailable
	}
	return string(digits[len(digits)-4:])
}

// HasLast4 reports whether the card suffix is known.
func (r *StatementRecord) HasLast4() bool {
	return len(r.CardLast4) == 4 && r.CardLast4 != NotAvailable
}

// CardID identifies the card as "{issuer} *{last4}".
func (r *StatementRecord) CardID() string {
	issuer := r.Issuer
	if issuer == "" || issuer == NotAvailable {
		issuer = UnknownIssuer
	}
	last4 := r.CardLast4
	if !r.HasLast4() {
		last4 = "****"
	}
	return fmt.Sprintf("%s *%s", issuer, last4)
}

// Utilization returns total due as a percentage of the credit limit. The
// flag is false when either side is unknown or the limit is not positive.
func (r *StatementRecord) Utilization() (decimal.Decimal, bool) {
	if !r.TotalAmountDue.Valid || !r.CreditLimit.Valid || !r.CreditLimit.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return r.TotalAmountDue.Decimal.Div(r.CreditLimit.Decimal).Mul(decimal.NewFromInt(100)), true
}

// Clone returns a deep copy.
func (r *StatementRecord) Clone() *StatementRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Transactions = make([]Transaction, len(r.Transactions))
	copy(c.Transactions, r.Transactions)
	c.Insights = make([]string, len(r.Insights))
	copy(c.Insights, r.Insights)
	if r.RewardsPoints != nil {
		rp := *r.RewardsPoints
		c.RewardsPoints = &rp
	}
	if r.Source != nil {
		s := *r.Source
		c.Source = &s
	}
	return &c
}
