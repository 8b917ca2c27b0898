// Package categorize assigns taxonomy categories to transactions from their
// descriptions.
package categorize

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// Rule maps description keywords to a category.
type Rule struct {
	Category domain.Category
	Keywords []string
}

// DefaultRules is evaluated top to bottom and the first match wins.
// Specific merchants sit above the generic rules that would also match them:
// "uber eats" resolves to Food & Dining before "uber" can claim Transport,
// "swiggy instamart" to Groceries before "swiggy", and "amazon fresh" to
// Groceries before "amazon" reaches Shopping.
var DefaultRules = []Rule{
	{domain.CategoryPayment, []string{
		"payment received", "payment - thank you", "payment thank you", "thank you for your payment",
		"autopay", "auto debit", "bbps payment received", "neft payment", "imps payment", "upi payment received",
		"payment recd", "cc payment",
	}},
	{domain.CategoryGroceries, []string{
		"amazon fresh", "bigbasket", "big basket", "blinkit", "grofers", "zepto", "dmart", "d-mart", "jiomart",
		"more retail", "reliance fresh", "spencers", "nature's basket", "instamart", "grocery", "groceries",
		"supermarket", "kirana", "swiggy instamart",
	}},
	{domain.CategoryFoodDining, []string{
		"uber eats", "swiggy", "zomato", "dominos", "domino's", "pizza hut", "mcdonald", "mcdonalds", "kfc",
		"burger king", "starbucks", "cafe coffee day", "ccd", "subway", "haldiram", "eatsure", "restaurant",
		"cafe", "dhaba", "bakery", "food",
	}},
	{domain.CategoryTravel, []string{
		"makemytrip", "goibibo", "cleartrip", "yatra", "easemytrip", "irctc", "indigo", "air india", "vistara",
		"spicejet", "akasa", "airlines", "airways", "airport", "oyo", "airbnb", "hotel", "resort", "booking.com",
		"redbus", "travel",
	}},
	{domain.CategoryTransport, []string{
		"uber", "ola", "olacabs", "rapido", "meru", "metro", "fastag", "parking", "petrol", "diesel", "fuel",
		"hpcl", "bpcl", "iocl", "indian oil", "hp pay", "shell", "toll", "cab", "taxi",
	}},
	{domain.CategoryEntertainment, []string{
		"netflix", "prime video", "amazon prime", "hotstar", "disney", "spotify", "gaana", "jiosaavn", "youtube",
		"sonyliv", "zee5", "bookmyshow", "pvr", "inox", "cinepolis", "cinema", "movie", "steam", "playstation",
		"xbox", "gaming",
	}},
	{domain.CategoryBillsUtilities, []string{
		"electricity", "bescom", "msedcl", "tata power", "adani electricity", "water bill", "gas bill",
		"indane", "bharat gas", "mahanagar gas", "airtel", "jio", "vodafone", "vi postpaid", "bsnl", "act fibernet",
		"broadband", "dth", "tata play", "tata sky", "recharge", "insurance", "lic", "utility", "bill payment",
		"bill",
	}},
	{domain.CategoryShopping, []string{
		"amazon", "flipkart", "myntra", "ajio", "nykaa", "meesho", "tata cliq", "snapdeal", "croma",
		"reliance digital", "lifestyle", "westside", "pantaloons", "shoppers stop", "decathlon", "ikea", "zara",
		"h&m", "uniqlo", "apple", "mall", "store", "retail", "shopping",
	}},
}

type compiledRule struct {
	category domain.Category
	patterns []*regexp.Regexp
}

// Categorizer applies an ordered rule list.
type Categorizer struct {
	rules []compiledRule
}

// New builds a categorizer. With no rules it uses DefaultRules. Categories
// outside the taxonomy are coerced to Other.
func New(rules ...Rule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Categorizer{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cat := r.Category
		if !cat.Valid() {
			cat = domain.CategoryOther
		}
		cr := compiledRule{category: cat}
		for _, kw := range r.Keywords {
			if re := keywordPattern(kw); re != nil {
				cr.patterns = append(cr.patterns, re)
			}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

var defaultCategorizer = New()

// Default returns the categorizer built from DefaultRules.
func Default() *Categorizer { return defaultCategorizer }

// keywordPattern matches kw as a whole word or phrase, ignoring case.
// Word boundaries keep "ola" from matching inside "coca cola".
func keywordPattern(kw string) *regexp.Regexp {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return nil
	}
	expr := regexp.QuoteMeta(kw)
	if isWordChar(kw[0]) {
		expr = `\b` + expr
	}
	if isWordChar(kw[len(kw)-1]) {
		expr = expr + `\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// CategoryOf returns the category of the first rule matching description.
func (c *Categorizer) CategoryOf(description string) domain.Category {
	desc := strings.Join(strings.Fields(description), " ")
	if desc == "" {
		return domain.CategoryOther
	}
	for _, r := range c.rules {
		for _, re := range r.patterns {
			if re.MatchString(desc) {
				return r.category
			}
		}
	}
	return domain.CategoryOther
}

// Categorize returns a copy of txs with every category overwritten.
func (c *Categorizer) Categorize(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		tx.Category = c.CategoryOf(tx.Description)
		out[i] = tx
	}
	return out
}

// Categorize runs the default categorizer.
func Categorize(txs []domain.Transaction) []domain.Transaction {
	return defaultCategorizer.Categorize(txs)
}
