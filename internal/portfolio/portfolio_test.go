package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(day int, desc, amt string, typ domain.TxType, cat domain.Category) domain.Transaction {
	t := domain.NewTransaction(domain.NewDate(2024, time.January, day), desc, d(amt), typ)
	t.Category = cat
	return t
}

func records() []*domain.StatementRecord {
	hdfc := domain.NewStatementRecord()
	hdfc.Issuer, hdfc.CardType, hdfc.CardLast4 = "HDFC Bank", "Regalia", "1234"
	hdfc.TotalAmountDue = domain.Known(d("30000"))
	hdfc.CreditLimit = domain.Known(d("100000"))
	hdfc.AvailableCreditLimit = domain.Known(d("70000"))
	hdfc.PaymentDueDate = domain.NewDate(2024, time.February, 4)
	hdfc.Transactions = []domain.Transaction{
		tx(3, "SWIGGY", "500", domain.Debit, domain.CategoryFoodDining),
		tx(5, "AMAZON", "2000", domain.Debit, domain.CategoryShopping),
		tx(5, "PAYMENT", "10000", domain.Credit, domain.CategoryPayment),
	}

	sbi := domain.NewStatementRecord()
	sbi.Issuer = "SBI Card"
	sbi.TotalAmountDue = domain.Known(d("10000.50"))
	sbi.CreditLimit = domain.Known(d("60000"))
	sbi.Transactions = []domain.Transaction{
		tx(3, "ZOMATO", "1500", domain.Debit, domain.CategoryFoodDining),
		tx(2, "UBER", "2000", domain.Debit, domain.CategoryTransport),
		{Date: domain.UnknownDate(), Description: "MISC", Amount: d("10"), Type: domain.Debit, Category: domain.CategoryOther},
	}

	unknown := domain.NewStatementRecord()
	return []*domain.StatementRecord{hdfc, sbi, unknown, nil}
}

func TestSummarize(t *testing.T) {
	s := Summarize(records())

	assert.Equal(t, 3, s.Cards)
	assert.True(t, s.TotalDue.Equal(d("40000.50")))
	assert.True(t, s.TotalCreditLimit.Equal(d("160000")))
	assert.True(t, s.TotalAvailable.Equal(d("70000")))
	require.True(t, s.AvgUtilization.Valid)
	assert.Equal(t, "25.0", s.AvgUtilization.Decimal.StringFixed(1))

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Cards)
	assert.False(t, empty.AvgUtilization.Valid)
	assert.True(t, empty.TotalDue.IsZero())
}

func TestCompare(t *testing.T) {
	rows := Compare(records())

	require.Len(t, rows, 3)
	assert.Equal(t, "HDFC Bank", rows[0].Issuer)
	assert.Equal(t, "30.0%", rows[0].Utilization)
	assert.Equal(t, "16.7%", rows[1].Utilization)
	assert.Equal(t, domain.NotAvailable, rows[2].Utilization)
	assert.Equal(t, domain.NotAvailable, rows[2].Last4)
	assert.Equal(t, "04-Feb-2024", rows[0].DueDate.String())
}

func TestCategorySpend(t *testing.T) {
	got := CategorySpend(records())

	require.Len(t, got, 4)
	assert.Equal(t, domain.CategoryFoodDining, got[0].Category)
	assert.True(t, got[0].Amount.Equal(d("2000")))
	// Three categories tie at 2000; names break the tie.
	assert.Equal(t, domain.CategoryShopping, got[1].Category)
	assert.Equal(t, domain.CategoryTransport, got[2].Category)
	assert.Equal(t, domain.CategoryOther, got[3].Category)
}

func TestCategorySpendByCard(t *testing.T) {
	got := CategorySpendByCard(records())

	require.Len(t, got, 5)
	assert.Equal(t, "HDFC Bank *1234", got[0].Card)
	assert.Equal(t, domain.CategoryShopping, got[0].Category)
	assert.True(t, got[0].Amount.Equal(d("2000")))
	assert.Equal(t, "HDFC Bank *1234", got[1].Card)
	assert.Equal(t, "SBI Card *****", got[2].Card)
	assert.Equal(t, domain.CategoryTransport, got[2].Category)
}

func TestCounts(t *testing.T) {
	assert.Equal(t, TxCounts{Total: 6, Debit: 5, Credit: 1}, Counts(records()))
	assert.Equal(t, TxCounts{}, Counts(nil))
}

func TestDailySpend(t *testing.T) {
	got := DailySpend(records())

	require.Len(t, got, 3)
	assert.Equal(t, "02-Jan-2024", got[0].Date.String())
	assert.True(t, got[0].Amount.Equal(d("2000")))
	assert.Equal(t, "03-Jan-2024", got[1].Date.String())
	assert.True(t, got[1].Amount.Equal(d("2000")), "debits from both cards on the same day")
	assert.Equal(t, "05-Jan-2024", got[2].Date.String())
	assert.True(t, got[2].Amount.Equal(d("2000")), "credits are excluded")
}

func TestTopTransactions(t *testing.T) {
	got := TopTransactions(records(), 3)

	require.Len(t, got, 3)
	assert.Equal(t, "AMAZON", got[0].Description, "ties keep input order")
	assert.Equal(t, "UBER", got[1].Description)
	assert.Equal(t, "ZOMATO", got[2].Description)
	assert.Equal(t, "HDFC Bank *1234", got[0].Card)

	assert.Len(t, TopTransactions(records(), 100), 5)
	assert.Empty(t, TopTransactions(records(), 0))
}

func TestFoldsDoNotMutate(t *testing.T) {
	recs := records()
	before := recs[0].Clone()

	Summarize(recs)
	CategorySpend(recs)
	TopTransactions(recs, 2)

	assert.Equal(t, before, recs[0])
}
