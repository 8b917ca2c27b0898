package parser

import "github.com/dvloznov/statement-analyzer/internal/detect"

// HDFC statements use dd/mm/yyyy throughout and "Label : value" headers.
// Credits carry a trailing "Cr".
var hdfcLayout = layout{
	bank:        detect.HDFC,
	issuer:      "HDFC Bank",
	dateLayouts: []string{"02/01/2006"},

	cardType:       mustCompile(`(?im)^hdfc bank[ \t]+([a-z][a-z ]*?)[ \t]+credit card[ \t]*$`),
	customerName:   mustCompile(`(?im)^name[ \t]*:[ \t]*(.+?)[ \t]*$`),
	cardNumber:     mustCompile(`(?im)card no\.?[ \t]*:[ \t]*([0-9x* -]{4,})`),
	period:         mustCompile(`(?im)billing period[ \t]*:[ \t]*(\d{2}/\d{2}/\d{4})[ \t]*(?:-|to)[ \t]*(\d{2}/\d{2}/\d{4})`),
	dueDate:        mustCompile(`(?im)payment due date[ \t]*:[ \t]*(\d{2}/\d{2}/\d{4})`),
	totalDue:       mustCompile(`(?im)total dues[ \t]*:[ \t]*` + amountExpr),
	minimumDue:     mustCompile(`(?im)minimum amount due[ \t]*:[ \t]*` + amountExpr),
	creditLimit:    mustCompile(`(?im)^credit limit[ \t]*:[ \t]*` + amountExpr),
	availableLimit: mustCompile(`(?im)available credit limit[ \t]*:[ \t]*` + amountExpr),

	rewardsEarned:   mustCompile(`(?i)\bearned[ \t]+([\d,]+)`),
	rewardsRedeemed: mustCompile(`(?i)\bredeemed[ \t]+([\d,]+)`),
	rewardsBalance:  mustCompile(`(?i)\bclosing balance[ \t]+([\d,]+)`),

	txLine: mustCompile(`(?i)^(?P<date>\d{2}/\d{2}/\d{4})\s+(?P<desc>.+?)\s+(?P<amount>-?[\d,]+\.\d{2})(?:\s+(?P<dir>cr|dr))?$`),
}

// NewHDFC returns the HDFC Bank parser.
func NewHDFC() Parser { return newLayoutParser(hdfcLayout) }
