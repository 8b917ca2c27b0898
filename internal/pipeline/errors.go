package pipeline

import (
	"errors"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
)

// DocumentError ties a failure to the document that caused it.
type DocumentError struct {
	Document string
	Err      error
}

// Error keeps the AI adapter's own message when it is the cause.
func (e *DocumentError) Error() string {
	var extErr *aivision.ExtractionError
	if errors.As(e.Err, &extErr) {
		return extErr.Error()
	}
	return fmt.Sprintf("Error processing %s: %v", e.Document, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
