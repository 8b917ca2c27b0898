package parser

import "github.com/dvloznov/statement-analyzer/internal/detect"

// SBI Card uses two-digit years ("12 Jan 24") and marks each row D or C.
var sbiLayout = layout{
	bank:        detect.SBI,
	issuer:      "SBI Card",
	dateLayouts: []string{"02 Jan 06", "02 Jan 2006"},

	cardType:       mustCompile(`(?im)^([a-z][a-z ]*?)[ \t]+sbi card[ \t]*$`),
	customerName:   mustCompile(`(?im)^statement for[ \t]*:[ \t]*(.+?)[ \t]*$`),
	cardNumber:     mustCompile(`(?im)card number[ \t]*:[ \t]*([0-9x* -]{4,})`),
	period:         mustCompile(`(?im)statement period[ \t]*:[ \t]*(\d{2} [a-z]{3} \d{2,4})[ \t]+to[ \t]+(\d{2} [a-z]{3} \d{2,4})`),
	dueDate:        mustCompile(`(?im)payment due date[ \t]*:[ \t]*(\d{2} [a-z]{3} \d{2,4})`),
	totalDue:       mustCompile(`(?im)total amount due[ \t]*:[ \t]*` + amountExpr),
	minimumDue:     mustCompile(`(?im)minimum amount due[ \t]*:[ \t]*` + amountExpr),
	creditLimit:    mustCompile(`(?im)^credit limit[ \t]*:[ \t]*` + amountExpr),
	availableLimit: mustCompile(`(?im)available credit limit[ \t]*:[ \t]*` + amountExpr),

	rewardsEarned:   mustCompile(`(?i)\bearned[ \t]+([\d,]+)`),
	rewardsRedeemed: mustCompile(`(?i)\bredeemed[ \t]+([\d,]+)`),
	rewardsBalance:  mustCompile(`(?i)\bclosing balance[ \t]+([\d,]+)`),

	txLine: mustCompile(`(?i)^(?P<date>\d{2} [a-z]{3} \d{2})\s+(?P<desc>.+?)\s+(?P<amount>-?[\d,]+\.\d{2})(?:\s*(?P<dir>[dc]))?$`),
}

// NewSBI returns the SBI Card parser.
func NewSBI() Parser { return newLayoutParser(sbiLayout) }
