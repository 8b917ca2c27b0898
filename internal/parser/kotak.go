package parser

import "github.com/dvloznov/statement-analyzer/internal/detect"

// Kotak uses dd-Mon-yyyy dates and "Rs." amounts. Statements carry no
// reward summary.
var kotakLayout = layout{
	bank:        detect.Kotak,
	issuer:      "Kotak Mahindra Bank",
	dateLayouts: []string{"02-Jan-2006", "02-Jan-06"},

	cardType:       mustCompile(`(?im)^kotak[ \t]+([a-z][a-z ]*?)[ \t]+credit card[ \t]*$`),
	customerName:   mustCompile(`(?im)^primary card holder[ \t]*:[ \t]*(.+?)[ \t]*$`),
	cardNumber:     mustCompile(`(?im)card number[ \t]*:[ \t]*([0-9x* -]{4,})`),
	period:         mustCompile(`(?im)statement period[ \t]*:[ \t]*(\d{2}-[a-z]{3}-\d{2,4})[ \t]+to[ \t]+(\d{2}-[a-z]{3}-\d{2,4})`),
	dueDate:        mustCompile(`(?im)remember to pay by[ \t]*:[ \t]*(\d{2}-[a-z]{3}-\d{2,4})`),
	totalDue:       mustCompile(`(?im)total amount due[ \t]*:[ \t]*` + amountExpr),
	minimumDue:     mustCompile(`(?im)minimum amount due[ \t]*:[ \t]*` + amountExpr),
	creditLimit:    mustCompile(`(?im)^total credit limit[ \t]*:[ \t]*` + amountExpr),
	availableLimit: mustCompile(`(?im)available credit limit[ \t]*:[ \t]*` + amountExpr),

	txLine: mustCompile(`(?i)^(?P<date>\d{2}-[a-z]{3}-\d{4})\s+(?P<desc>.+?)\s+(?P<amount>-?[\d,]+\.\d{2})(?:\s+(?P<dir>cr|dr))?$`),
}

// NewKotak returns the Kotak Mahindra Bank parser.
func NewKotak() Parser { return newLayoutParser(kotakLayout) }
