package aivision

import "fmt"

// Stage names the step of AI extraction that failed.
type Stage string

const (
	StageOracle   Stage = "oracle"
	StageDecode   Stage = "decode"
	StageValidate Stage = "validate"
)

// ExtractionError reports a failed extraction for one document.
type ExtractionError struct {
	Document  string
	Stage     Stage
	Retryable bool
	Err       error
}

func (e *ExtractionError) Error() string {
	switch e.Stage {
	case StageDecode:
		return fmt.Sprintf("JSON parsing error in %s: %v", e.Document, e.Err)
	case StageValidate:
		return fmt.Sprintf("Validation error in %s: %v", e.Document, e.Err)
	default:
		return fmt.Sprintf("Error processing %s: %v", e.Document, e.Err)
	}
}

func (e *ExtractionError) Unwrap() error { return e.Err }
