package parser

import "github.com/dvloznov/statement-analyzer/internal/detect"

// ICICI prints header dates in long form ("January 15, 2024") and rows as
// dd/mm/yyyy followed by a reference serial number.
var iciciLayout = layout{
	bank:        detect.ICICI,
	issuer:      "ICICI Bank",
	dateLayouts: []string{"January 2, 2006", "Jan 2, 2006", "02/01/2006"},

	cardType:       mustCompile(`(?im)^card type[ \t]*:[ \t]*(?:icici bank[ \t]+)?(.+?)(?:[ \t]+credit card)?[ \t]*$`),
	customerName:   mustCompile(`(?im)^customer name[ \t]*:[ \t]*(.+?)[ \t]*$`),
	cardNumber:     mustCompile(`(?im)card number[ \t]*:[ \t]*([0-9x* -]{4,})`),
	period:         mustCompile(`(?im)statement period[ \t]*:[ \t]*([a-z]+ \d{1,2}, \d{4})[ \t]+to[ \t]+([a-z]+ \d{1,2}, \d{4})`),
	dueDate:        mustCompile(`(?im)payment due date[ \t]*:[ \t]*([a-z]+ \d{1,2}, \d{4})`),
	totalDue:       mustCompile(`(?im)total amount due[ \t]*:[ \t]*` + amountExpr),
	minimumDue:     mustCompile(`(?im)minimum amount due[ \t]*:[ \t]*` + amountExpr),
	creditLimit:    mustCompile(`(?im)^credit limit[ \t]*:[ \t]*` + amountExpr),
	availableLimit: mustCompile(`(?im)^available credit[ \t]*:[ \t]*` + amountExpr),

	rewardsEarned:   mustCompile(`(?im)reward points earned[ \t]*:[ \t]*([\d,]+)`),
	rewardsRedeemed: mustCompile(`(?im)reward points redeemed[ \t]*:[ \t]*([\d,]+)`),
	rewardsBalance:  mustCompile(`(?im)reward points balance[ \t]*:[ \t]*([\d,]+)`),

	txLine: mustCompile(`(?i)^(?P<date>\d{2}/\d{2}/\d{4})\s+(?:\d{6,}\s+)?(?P<desc>.+?)\s+(?P<amount>-?[\d,]+\.\d{2})(?:\s+(?P<dir>cr|dr))?$`),
}

// NewICICI returns the ICICI Bank parser.
func NewICICI() Parser { return newLayoutParser(iciciLayout) }
