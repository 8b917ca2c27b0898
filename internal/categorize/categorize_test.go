package categorize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		description string
		want        domain.Category
	}{
		{"UBER TRIP 123", domain.CategoryTransport},
		{"UNKNOWN MERCHANT XYZ", domain.CategoryOther},
		{"UBER EATS ORDER 88", domain.CategoryFoodDining},
		{"SWIGGY INSTAMART BLR", domain.CategoryGroceries},
		{"SWIGGY BANGALORE", domain.CategoryFoodDining},
		{"AMAZON FRESH ORDER", domain.CategoryGroceries},
		{"AMAZON PRIME VIDEO", domain.CategoryEntertainment},
		{"AMAZON PAY INDIA", domain.CategoryShopping},
		{"PAYMENT RECEIVED - THANK YOU", domain.CategoryPayment},
		{"BBPS BILL PAYMENT ELECTRICITY BESCOM", domain.CategoryBillsUtilities},
		{"IRCTC E-TICKET", domain.CategoryTravel},
		{"INDIAN OIL PETROL PUMP", domain.CategoryTransport},
		{"COCA COLA VENDING", domain.CategoryOther},
		{"JIOMART ONLINE", domain.CategoryGroceries},
		{"JIO PREPAID RECHARGE", domain.CategoryBillsUtilities},
		{"netflix.com", domain.CategoryEntertainment},
		{"H&M HYDERABAD", domain.CategoryShopping},
		{"", domain.CategoryOther},
	}

	c := Default()
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CategoryOf(tt.description))
		})
	}
}

func TestCategorize_OverwritesAndDoesNotMutateInput(t *testing.T) {
	in := []domain.Transaction{
		{Description: "ZOMATO", Amount: decimal.NewFromInt(300), Type: domain.Debit, Category: domain.CategoryShopping},
		{Description: "SOMETHING ELSE", Amount: decimal.NewFromInt(10), Type: domain.Debit},
	}

	out := Categorize(in)

	assert.Equal(t, domain.CategoryFoodDining, out[0].Category)
	assert.Equal(t, domain.CategoryOther, out[1].Category)
	assert.Equal(t, domain.CategoryShopping, in[0].Category)
	assert.Equal(t, domain.Category(""), in[1].Category)
	for _, tx := range out {
		assert.True(t, tx.Category.Valid())
	}
}

func TestCategorize_Stable(t *testing.T) {
	txs := []domain.Transaction{{Description: "UBER EATS"}, {Description: "OLA CABS"}, {Description: "BIGBASKET"}}
	first := Categorize(txs)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Categorize(txs))
	}
}

func TestNew_CustomRules(t *testing.T) {
	c := New(
		Rule{Category: "Pets", Keywords: []string{"petsmart"}},
		Rule{Category: domain.CategoryShopping, Keywords: []string{"  ", "decathlon"}},
	)

	assert.Equal(t, domain.CategoryOther, c.CategoryOf("PETSMART #12"), "non-taxonomy categories collapse to Other")
	assert.Equal(t, domain.CategoryShopping, c.CategoryOf("DECATHLON SPORTS"))
	assert.Equal(t, domain.CategoryOther, c.CategoryOf("UBER TRIP"), "custom rules replace the defaults")
}
