package aivision

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

var noDelay = RetryConfig{MaxRetries: 2}

const goodResponse = "```json\n" + `{
  "issuer": "HDFC Bank",
  "customer_name": "RAHUL  SHARMA",
  "card_type": "Regalia",
  "card_last_4": "XXXX XXXX XXXX 1234",
  "statement_period": {"from": "16-Dec-2023", "to": "15-Jan-2024"},
  "payment_due_date": "04-FEB-2024",
  "credit_limit": "₹3,00,000.00",
  "available_credit_limit": 254769.5,
  "total_amount_due": "Rs. 45,230.50",
  "minimum_amount_due": null,
  "rewards_points": {"earned": 452, "redeemed": "0", "balance": "1,652"},
  "transactions": [
    {"date": "18-Dec-2023", "description": "SWIGGY BANGALORE", "amount": "452.00", "type": "Debit", "category": "Shopping"},
    {"date": "28-Dec-2023", "description": "PAYMENT RECEIVED", "amount": -25000, "type": "Debit", "category": "Payment"},
    {"date": null, "description": "NETFLIX.COM", "amount": 649, "type": "Debit", "category": "Entertainment"}
  ],
  "insights": ["You spent most on food.", " "]
}` + "\n```"

func fixedOracle(resp string, err error) (Oracle, *int32) {
	var calls int32
	return OracleFunc(func(ctx context.Context, prompt string, doc []byte, mime string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return resp, err
	}), &calls
}

func TestAdapter_Extract(t *testing.T) {
	oracle, calls := fixedOracle(goodResponse, nil)
	a := NewAdapter(oracle, WithRetryConfig(noDelay))

	rec, err := a.Extract(context.Background(), "hdfc.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 1, *calls)

	assert.Equal(t, "HDFC Bank", rec.Issuer)
	assert.Equal(t, "RAHUL SHARMA", rec.CustomerName)
	assert.Equal(t, "1234", rec.CardLast4)
	assert.Equal(t, "16-Dec-2023", rec.StatementPeriod.From.String())
	assert.Equal(t, "04-Feb-2024", rec.PaymentDueDate.String())
	assert.True(t, rec.CreditLimit.Decimal.Equal(decimal.NewFromInt(300000)))
	assert.True(t, rec.AvailableCreditLimit.Decimal.Equal(decimal.RequireFromString("254769.5")))
	assert.True(t, rec.TotalAmountDue.Decimal.Equal(decimal.RequireFromString("45230.5")))
	assert.False(t, rec.MinimumAmountDue.Valid)
	assert.Equal(t, &domain.RewardsPoints{Earned: 452, Redeemed: 0, Balance: 1652}, rec.RewardsPoints)

	require.Len(t, rec.Transactions, 3)
	assert.Equal(t, domain.CategoryFoodDining, rec.Transactions[0].Category, "categories are recomputed locally")
	assert.Equal(t, domain.Credit, rec.Transactions[1].Type, "negative amounts become credits")
	assert.True(t, rec.Transactions[1].Amount.Equal(decimal.NewFromInt(25000)))
	assert.False(t, rec.Transactions[2].Date.Known(), "rows with unknown dates are kept")

	assert.Equal(t, []string{"You spent most on food."}, rec.Insights)
}

func TestAdapter_TrustedCategories(t *testing.T) {
	oracle, _ := fixedOracle(goodResponse, nil)
	a := NewAdapter(oracle, WithRetryConfig(noDelay), WithTrustedCategories(true))

	rec, err := a.Extract(context.Background(), "hdfc.pdf", nil, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryShopping, rec.Transactions[0].Category)
}

func TestAdapter_Errors(t *testing.T) {
	tests := []struct {
		name      string
		resp      string
		err       error
		stage     Stage
		prefix    string
		wantCalls int32
	}{
		{"not json", "Sorry, I cannot read this.", nil, StageDecode, "JSON parsing error in a.pdf: ", 1},
		{"empty", "```json\n```", nil, StageDecode, "JSON parsing error in a.pdf: ", 1},
		{"schema", `{"issuer": "X"}`, nil, StageValidate, "Validation error in a.pdf: ", 1},
		{"wrong types", `{"transactions": [{"description": 5, "amount": "1"}]}`, nil, StageValidate, "Validation error in a.pdf: ", 1},
		{"permanent oracle failure", "", errors.New("invalid api key"), StageOracle, "Error processing a.pdf: ", 1},
		{"retries exhausted", "", &genai.APIError{Code: 503, Message: "overloaded"}, StageOracle, "Error processing a.pdf: ", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle, calls := fixedOracle(tt.resp, tt.err)
			a := NewAdapter(oracle, WithRetryConfig(noDelay))

			rec, err := a.Extract(context.Background(), "a.pdf", nil, "application/pdf")
			assert.Nil(t, rec)
			var extErr *ExtractionError
			require.ErrorAs(t, err, &extErr)
			assert.Equal(t, tt.stage, extErr.Stage)
			assert.Equal(t, "a.pdf", extErr.Document)
			assert.True(t, strings.HasPrefix(err.Error(), tt.prefix), err.Error())
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestAdapter_RetriesTransientErrors(t *testing.T) {
	var calls int32
	oracle := OracleFunc(func(ctx context.Context, prompt string, doc []byte, mime string) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", &genai.APIError{Code: 429, Message: "rate limited"}
		}
		return `{"transactions": []}`, nil
	})

	rec, err := NewAdapter(oracle, WithRetryConfig(noDelay)).Extract(context.Background(), "a.pdf", nil, "application/pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls)
	assert.Empty(t, rec.Transactions)
	assert.Equal(t, domain.UnknownIssuer, rec.Issuer)
}

func TestAdapter_TimeoutPerAttempt(t *testing.T) {
	var calls int32
	oracle := OracleFunc(func(ctx context.Context, prompt string, doc []byte, mime string) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return "", ctx.Err()
	})

	a := NewAdapter(oracle, WithRetryConfig(RetryConfig{MaxRetries: 1}), WithTimeout(10*time.Millisecond))
	_, err := a.Extract(context.Background(), "slow.pdf", nil, "application/pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 2, calls, "attempt timeouts are retried")
}

func TestAdapter_NoOracle(t *testing.T) {
	_, err := NewAdapter(nil).Extract(context.Background(), "a.pdf", nil, "application/pdf")
	assert.ErrorIs(t, err, ErrNoOracle)
	assert.Equal(t, "Error processing a.pdf: no AI oracle configured", err.Error())
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := WithRetry(ctx, RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: time.Second, BackoffFactor: 2},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("boom")
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter", "Here you go:\n{\"a\":{\"b\":2}}\nThanks!", `{"a":{"b":2}}`},
		{"whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestTextOCR(t *testing.T) {
	var gotPrompt string
	oracle := OracleFunc(func(ctx context.Context, prompt string, doc []byte, mime string) (string, error) {
		gotPrompt = prompt
		return "```\nHDFC Bank\nTotal Dues : 1,000.00\n```", nil
	})

	text, err := NewTextOCR(oracle).ExtractText(context.Background(), []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "HDFC Bank\nTotal Dues : 1,000.00", text)
	assert.Equal(t, textPrompt, gotPrompt)

	_, err = (&TextOCR{}).ExtractText(context.Background(), nil, "image/png")
	assert.ErrorIs(t, err, ErrNoOracle)
}

func TestPromptNamesTaxonomy(t *testing.T) {
	for _, c := range domain.Categories {
		assert.Contains(t, Prompt, string(c))
	}
	assert.Contains(t, Prompt, "statement_period")
	assert.Contains(t, Prompt, "DD-MMM-YYYY")
}

func TestGenerateConfig(t *testing.T) {
	cfg := generateConfig(Prompt)
	require.NotNil(t, cfg)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)

	assert.Nil(t, generateConfig(textPrompt), "transcription stays plain text")
}
