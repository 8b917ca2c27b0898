// Package bigquery writes extracted statements to BigQuery tables.
package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

const currency = "INR"

// StatementRow is one statement header in the statements table.
type StatementRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED
	BatchID     string `bigquery:"batch_id"`     // NULLABLE

	Document string `bigquery:"document"` // NULLABLE
	Method   string `bigquery:"method"`   // NULLABLE

	Issuer       string `bigquery:"issuer"`        // REQUIRED
	CardType     string `bigquery:"card_type"`     // NULLABLE
	CardLast4    string `bigquery:"card_last_4"`   // NULLABLE
	CustomerName string `bigquery:"customer_name"` // NULLABLE

	PeriodStart    bigquery.NullDate `bigquery:"period_start"`     // NULLABLE
	PeriodEnd      bigquery.NullDate `bigquery:"period_end"`       // NULLABLE
	PaymentDueDate bigquery.NullDate `bigquery:"payment_due_date"` // NULLABLE

	TotalAmountDue       *big.Rat `bigquery:"total_amount_due"`       // NULLABLE NUMERIC
	MinimumAmountDue     *big.Rat `bigquery:"minimum_amount_due"`     // NULLABLE NUMERIC
	CreditLimit          *big.Rat `bigquery:"credit_limit"`           // NULLABLE NUMERIC
	AvailableCreditLimit *big.Rat `bigquery:"available_credit_limit"` // NULLABLE NUMERIC
	Currency             string   `bigquery:"currency"`               // REQUIRED

	RewardsEarned   bigquery.NullInt64 `bigquery:"rewards_earned"`
	RewardsRedeemed bigquery.NullInt64 `bigquery:"rewards_redeemed"`
	RewardsBalance  bigquery.NullInt64 `bigquery:"rewards_balance"`

	Insights []string `bigquery:"insights"` // REPEATED STRING

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// TransactionRow is one statement line in the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	StatementID   string `bigquery:"statement_id"`   // REQUIRED
	BatchID       string `bigquery:"batch_id"`       // NULLABLE

	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE
	Amount          *big.Rat          `bigquery:"amount"`           // REQUIRED NUMERIC
	Currency        string            `bigquery:"currency"`         // REQUIRED
	Direction       string            `bigquery:"direction"`        // REQUIRED

	RawDescription string `bigquery:"raw_description"` // REQUIRED
	CategoryName   string `bigquery:"category_name"`   // REQUIRED

	StatementLineNo int64 `bigquery:"statement_line_no"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// ToRows flattens a record into a statement row and its transaction rows.
func ToRows(rec *domain.StatementRecord, batchID string, now time.Time) (*StatementRow, []*TransactionRow, error) {
	if rec == nil {
		return nil, nil, fmt.Errorf("ToRows: nil record")
	}

	st := &StatementRow{
		StatementID:          uuid.NewString(),
		BatchID:              batchID,
		Issuer:               rec.Issuer,
		CardType:             rec.CardType,
		CardLast4:            rec.CardLast4,
		CustomerName:         rec.CustomerName,
		PeriodStart:          nullDate(rec.StatementPeriod.From),
		PeriodEnd:            nullDate(rec.StatementPeriod.To),
		PaymentDueDate:       nullDate(rec.PaymentDueDate),
		TotalAmountDue:       nullRat(rec.TotalAmountDue),
		MinimumAmountDue:     nullRat(rec.MinimumAmountDue),
		CreditLimit:          nullRat(rec.CreditLimit),
		AvailableCreditLimit: nullRat(rec.AvailableCreditLimit),
		Currency:             currency,
		Insights:             rec.Insights,
		CreatedTS:            now,
	}
	if rec.Source != nil {
		st.Document = rec.Source.Document
		st.Method = rec.Source.Method
	}
	if rp := rec.RewardsPoints; rp != nil {
		st.RewardsEarned = bigquery.NullInt64{Int64: rp.Earned, Valid: true}
		st.RewardsRedeemed = bigquery.NullInt64{Int64: rp.Redeemed, Valid: true}
		st.RewardsBalance = bigquery.NullInt64{Int64: rp.Balance, Valid: true}
	}

	txs := make([]*TransactionRow, 0, len(rec.Transactions))
	for i, tx := range rec.Transactions {
		txs = append(txs, &TransactionRow{
			TransactionID:   uuid.NewString(),
			StatementID:     st.StatementID,
			BatchID:         batchID,
			TransactionDate: nullDate(tx.Date),
			Amount:          tx.Amount.Rat(),
			Currency:        currency,
			Direction:       string(tx.Type),
			RawDescription:  tx.Description,
			CategoryName:    string(tx.Category),
			StatementLineNo: int64(i + 1),
			CreatedTS:       now,
		})
	}
	return st, txs, nil
}

func nullDate(d domain.Date) bigquery.NullDate {
	cd, ok := d.Civil()
	return bigquery.NullDate{Date: cd, Valid: ok}
}

func nullRat(d decimal.NullDecimal) *big.Rat {
	if !d.Valid {
		return nil
	}
	return d.Decimal.Rat()
}
