// Package app wires configuration into the extraction pipeline for the binaries.
package app

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
	"github.com/dvloznov/statement-analyzer/internal/batch"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	"github.com/dvloznov/statement-analyzer/internal/parser"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/textextract"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config    *config.Config
	Processor *pipeline.Processor
	Runner    *batch.Runner
	Storage   *gcsuploader.Client // nil without GCS access
	Oracle    aivision.Oracle     // nil without an API key

	closers []func() error
}

// New builds the pipeline for method. GCS is attached when a bucket or a
// gs:// input needs it; failing to reach it is logged, not fatal.
func New(ctx context.Context, cfg *config.Config, method pipeline.Method, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	if cfg.HasOracle() {
		oracle, err := aivision.NewGeminiOracle(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model)
		if err != nil {
			return nil, fmt.Errorf("create oracle: %w", err)
		}
		a.Oracle = oracle
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; AI extraction disabled")
	}

	storage, err := gcsuploader.New(ctx, cfg.Cloud.CredentialsFile)
	if err != nil {
		log.Warn().Err(err).Msg("Cloud Storage unavailable; gs:// inputs disabled")
	} else {
		a.Storage = storage
		a.closers = append(a.closers, storage.Close)
	}

	ocr := selectOCR(cfg, a.Oracle, log)
	deps := pipeline.Deps{
		Method:   method,
		Text:     textextract.New(ocr, cfg.Batch.MinTextChars),
		Registry: parser.DefaultRegistry(),
	}
	if a.Storage != nil {
		deps.Storage = a.Storage
	}
	if a.Oracle != nil {
		deps.AI = aivision.NewAdapter(a.Oracle,
			aivision.WithTimeout(cfg.Oracle.Timeout),
			aivision.WithTrustedCategories(cfg.Oracle.TrustOracleCategories),
		)
	}

	a.Processor = pipeline.NewProcessor(deps)
	a.Runner = batch.NewRunner(a.Processor,
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithDocumentTimeout(cfg.Batch.DocumentTimeout),
	)
	return a, nil
}

// Close releases clients opened by New.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// selectOCR resolves OCR_ENGINE. auto prefers local tesseract and falls back
// to the oracle.
func selectOCR(cfg *config.Config, oracle aivision.Oracle, log zerolog.Logger) textextract.OCR {
	tesseract := func() textextract.OCR {
		t := textextract.NewTesseractOCR()
		t.Tesseract, t.Pdftoppm = cfg.OCR.Tesseract, cfg.OCR.Pdftoppm
		t.DPI, t.Language = cfg.OCR.DPI, cfg.OCR.Language
		return t
	}
	aiOCR := func() textextract.OCR {
		if oracle == nil {
			return nil
		}
		o := aivision.NewTextOCR(oracle)
		o.Timeout = cfg.Oracle.Timeout
		return o
	}

	var ocr textextract.OCR
	switch cfg.OCR.Engine {
	case "tesseract":
		ocr = tesseract()
	case "ai":
		ocr = aiOCR()
	case "none":
		return nil
	default:
		if _, err := exec.LookPath(cfg.OCR.Tesseract); err == nil {
			ocr = tesseract()
		} else {
			ocr = aiOCR()
		}
	}
	if ocr == nil {
		log.Warn().Str("engine", cfg.OCR.Engine).Msg("No OCR engine available; scanned documents need AI extraction")
	}
	return ocr
}
