package parser

import "github.com/dvloznov/statement-analyzer/internal/detect"

// Axis Bank rows end with Dr or Cr; header amounts may also carry Dr.
var axisLayout = layout{
	bank:        detect.Axis,
	issuer:      "Axis Bank",
	dateLayouts: []string{"02/01/2006"},

	cardType:       mustCompile(`(?im)^([a-z][a-z ]*?)[ \t]+axis bank credit card[ \t]*$`),
	customerName:   mustCompile(`(?im)^name[ \t]*:[ \t]*(.+?)[ \t]*$`),
	cardNumber:     mustCompile(`(?im)card no\.?[ \t]*:[ \t]*([0-9x* -]{4,})`),
	period:         mustCompile(`(?im)statement period[ \t]*:[ \t]*(\d{2}/\d{2}/\d{4})[ \t]*(?:-|to)[ \t]*(\d{2}/\d{2}/\d{4})`),
	dueDate:        mustCompile(`(?im)payment due date[ \t]*:[ \t]*(\d{2}/\d{2}/\d{4})`),
	totalDue:       mustCompile(`(?im)total payment due[ \t]*:[ \t]*` + amountExpr),
	minimumDue:     mustCompile(`(?im)minimum payment due[ \t]*:[ \t]*` + amountExpr),
	creditLimit:    mustCompile(`(?im)^credit limit[ \t]*:[ \t]*` + amountExpr),
	availableLimit: mustCompile(`(?im)available credit limit[ \t]*:[ \t]*` + amountExpr),

	rewardsEarned:   mustCompile(`(?im)reward points:.*?\bearned[ \t]+([\d,]+)`),
	rewardsRedeemed: mustCompile(`(?im)reward points:.*?\bredeemed[ \t]+([\d,]+)`),
	rewardsBalance:  mustCompile(`(?im)reward points:.*?\bbalance[ \t]+([\d,]+)`),

	txLine: mustCompile(`(?i)^(?P<date>\d{2}/\d{2}/\d{4})\s+(?P<desc>.+?)\s+(?P<amount>-?[\d,]+\.\d{2})(?:\s+(?P<dir>cr|dr))?$`),
}

// NewAxis returns the Axis Bank parser.
func NewAxis() Parser { return newLayoutParser(axisLayout) }
