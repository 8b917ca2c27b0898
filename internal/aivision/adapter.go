package aivision

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/categorize"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 90 * time.Second

// Adapter turns oracle responses into statement records.
type Adapter struct {
	oracle      Oracle
	timeout     time.Duration
	retry       RetryConfig
	categorizer *categorize.Categorizer
	trustOracle bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRetryConfig replaces DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(a *Adapter) { a.retry = cfg }
}

// WithCategorizer replaces the default categorizer.
func WithCategorizer(c *categorize.Categorizer) Option {
	return func(a *Adapter) {
		if c != nil {
			a.categorizer = c
		}
	}
}

// WithTrustedCategories keeps the categories the model assigned instead of
// recomputing them locally.
func WithTrustedCategories(trust bool) Option {
	return func(a *Adapter) { a.trustOracle = trust }
}

// NewAdapter returns an adapter around oracle.
func NewAdapter(oracle Oracle, opts ...Option) *Adapter {
	a := &Adapter{
		oracle:      oracle,
		timeout:     DefaultTimeout,
		retry:       DefaultRetryConfig,
		categorizer: categorize.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Extract sends doc to the oracle and returns the validated record.
// Every error is an *ExtractionError naming the document.
func (a *Adapter) Extract(ctx context.Context, name string, doc []byte, mimeType string) (*domain.StatementRecord, error) {
	log := logger.WithDocument(logger.FromContext(ctx), name)

	if a == nil || a.oracle == nil {
		return nil, &ExtractionError{Document: name, Stage: StageOracle, Err: ErrNoOracle}
	}

	attempt := 0
	raw, err := WithRetry(ctx, a.retry, func(ctx context.Context) (string, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		text, err := a.oracle.Generate(callCtx, Prompt, doc, mimeType)
		if err != nil {
			retryable := isRetryable(ctx, err)
			log.Warn().Err(err).Int("attempt", attempt).Bool("retryable", retryable).Msg("Oracle call failed")
			return "", &ExtractionError{Document: name, Stage: StageOracle, Retryable: retryable, Err: err}
		}
		return text, nil
	})
	if err != nil {
		var extErr *ExtractionError
		if !errors.As(err, &extErr) {
			err = &ExtractionError{Document: name, Stage: StageOracle, Err: err}
		}
		return nil, err
	}

	rec, err := a.decode(name, raw)
	if err != nil {
		log.Error().Err(err).Str("prompt_version", PromptVersion).Msg("Rejected oracle response")
		return nil, err
	}

	if !a.trustOracle {
		rec.Transactions = a.categorizer.Categorize(rec.Transactions)
	}

	log.Info().
		Int("transactions", len(rec.Transactions)).
		Int("attempts", attempt).
		Str("prompt_version", PromptVersion).
		Msg("AI extraction complete")
	return rec, nil
}

func (a *Adapter) decode(name, raw string) (*domain.StatementRecord, error) {
	clean := StripCodeFence(raw)
	if strings.TrimSpace(clean) == "" {
		return nil, &ExtractionError{Document: name, Stage: StageDecode, Err: errors.New("empty response")}
	}

	var generic any
	if err := json.Unmarshal([]byte(clean), &generic); err != nil {
		return nil, &ExtractionError{Document: name, Stage: StageDecode, Err: err}
	}
	if err := ValidateResponse(generic); err != nil {
		return nil, &ExtractionError{Document: name, Stage: StageValidate, Err: err}
	}

	var w wireRecord
	if err := json.Unmarshal([]byte(clean), &w); err != nil {
		return nil, &ExtractionError{Document: name, Stage: StageDecode, Err: err}
	}
	return w.record(), nil
}
