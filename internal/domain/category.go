package domain

import "strings"

// Category is one value of the fixed spending taxonomy.
type Category string

const (
	CategoryFoodDining     Category = "Food & Dining"
	CategoryShopping       Category = "Shopping"
	CategoryTransport      Category = "Transport"
	CategoryTravel         Category = "Travel"
	CategoryEntertainment  Category = "Entertainment"
	CategoryGroceries      Category = "Groceries"
	CategoryBillsUtilities Category = "Bills & Utilities"
	CategoryPayment        Category = "Payment"
	CategoryOther          Category = "Other"
)

// Categories lists the taxonomy in display order.
var Categories = []Category{
	CategoryFoodDining,
	CategoryShopping,
	CategoryTransport,
	CategoryTravel,
	CategoryEntertainment,
	CategoryGroceries,
	CategoryBillsUtilities,
	CategoryPayment,
	CategoryOther,
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the taxonomy ignoring case and spacing
// ("bills and utilities" is accepted). Anything else is Other.
func ParseCategory(s string) Category {
	norm := normalizeCategory(s)
	for _, k := range Categories {
		if normalizeCategory(string(k)) == norm {
			return k
		}
	}
	return CategoryOther
}

func normalizeCategory(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " AND ", " & ")
	return strings.Join(strings.Fields(name), " ")
}
