package aivision

import (
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// PromptVersion identifies the extraction prompt. Bump it whenever Prompt changes.
const PromptVersion = "statement-extract/v3"

// Prompt asks the model for one statement as strict JSON.
var Prompt = "Extract structured financial data from this credit card statement (PDF or image).\n\n" +
	"Return ONLY a valid JSON object with this structure (no markdown, no code fences):\n" +
	"{\n" +
	"  \"issuer\": \"Bank name\",\n" +
	"  \"customer_name\": \"Customer name\",\n" +
	"  \"card_type\": \"Card product name\",\n" +
	"  \"card_last_4\": \"last 4 digits of the card number\",\n" +
	"  \"statement_period\": {\"from\": \"DD-MMM-YYYY\", \"to\": \"DD-MMM-YYYY\"},\n" +
	"  \"payment_due_date\": \"DD-MMM-YYYY\",\n" +
	"  \"credit_limit\": \"amount\",\n" +
	"  \"available_credit_limit\": \"amount\",\n" +
	"  \"total_amount_due\": \"amount\",\n" +
	"  \"minimum_amount_due\": \"amount\",\n" +
	"  \"rewards_points\": {\"earned\": 0, \"redeemed\": 0, \"balance\": 0},\n" +
	"  \"transactions\": [\n" +
	"    {\"date\": \"DD-MMM-YYYY\", \"description\": \"text\", \"amount\": \"amount\", \"type\": \"Debit or Credit\", \"category\": \"category\"}\n" +
	"  ],\n" +
	"  \"insights\": [\"insight\"]\n" +
	"}\n\n" +
	"Rules:\n" +
	"- Categorize each transaction into exactly one of: " + categoryList() + ".\n" +
	"- Extract ALL transactions in document order.\n" +
	"- Use null for any field that is not printed on the statement.\n" +
	"- Omit rewards_points when the statement has no rewards summary.\n" +
	"- Provide 3 to 5 short insights about spending patterns.\n" +
	"- Output must begin with \"{\" and end with \"}\".\n"

// textPrompt asks for a plain transcription, used when a scan has no text layer.
const textPrompt = "Transcribe all text in the attached document exactly as printed, " +
	"one visual line per output line. Return only the text."

func categoryList() string {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
