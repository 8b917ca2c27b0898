package aivision

import (
	"context"
	"strings"
	"time"
)

// TextOCR transcribes scanned documents through the oracle. It satisfies
// textextract.OCR.
type TextOCR struct {
	Oracle  Oracle
	Timeout time.Duration
	Retry   RetryConfig
}

// NewTextOCR returns a TextOCR with the default timeout and retry policy.
func NewTextOCR(oracle Oracle) *TextOCR {
	return &TextOCR{Oracle: oracle, Timeout: DefaultTimeout, Retry: DefaultRetryConfig}
}

// ExtractText returns the transcribed text.
func (o *TextOCR) ExtractText(ctx context.Context, doc []byte, mimeType string) (string, error) {
	if o == nil || o.Oracle == nil {
		return "", ErrNoOracle
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	text, err := WithRetry(ctx, o.Retry, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		s, err := o.Oracle.Generate(callCtx, textPrompt, doc, mimeType)
		if err != nil {
			return "", &ExtractionError{Document: "ocr", Stage: StageOracle, Retryable: isRetryable(ctx, err), Err: err}
		}
		return s, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripFenceLines(text)), nil
}

// stripFenceLines drops Markdown fence lines models sometimes wrap text in.
func stripFenceLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
