package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
	"github.com/dvloznov/statement-analyzer/internal/categorize"
	"github.com/dvloznov/statement-analyzer/internal/detect"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/insights"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/parser"
)

// Method selects how a record is extracted.
type Method string

const (
	MethodAuto   Method = "auto"
	MethodAI     Method = "ai"
	MethodParser Method = "parser"
)

// ParseMethod validates a method name. Empty selects auto.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodAuto, nil
	case MethodAuto, MethodAI, MethodParser:
		return m, nil
	}
	return "", fmt.Errorf("unknown extraction method %q (want auto, ai or parser)", s)
}

// Step 1: LoadDocumentStep resolves the document bytes.
type LoadDocumentStep struct {
	Storage StorageService
}

func (s *LoadDocumentStep) Name() string { return "load" }

func (s *LoadDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	doc := state.Document
	switch {
	case len(doc.Data) > 0:
		state.Data = doc.Data
	case strings.HasPrefix(doc.URI, "gs://"):
		if s.Storage == nil {
			return fmt.Errorf("no storage configured for %s", doc.URI)
		}
		data, err := s.Storage.FetchFromGCS(ctx, doc.URI)
		if err != nil {
			return err
		}
		state.Data = data
	case doc.Path != "":
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return err
		}
		state.Data = data
	default:
		return errors.New("empty document")
	}
	if len(state.Data) == 0 {
		return errors.New("empty document")
	}
	return nil
}

// Step 2: DetectMIMEStep identifies PDFs and images by magic bytes.
type DetectMIMEStep struct{}

func (s *DetectMIMEStep) Name() string { return "detect-mime" }

func (s *DetectMIMEStep) Execute(ctx context.Context, state *PipelineState) error {
	mime, err := SniffMIME(state.Data)
	if err != nil {
		return err
	}
	state.MIMEType = mime
	return nil
}

// Step 3: ExtractStep produces the record through the configured method.
type ExtractStep struct {
	Method   Method
	Text     TextExtractor
	Registry *parser.Registry
	AI       AIExtractor
}

func (s *ExtractStep) Name() string { return "extract" }

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	method := s.Method
	if state.Document.Method != "" {
		method = state.Document.Method
	}
	switch method {
	case MethodAI:
		return s.runAI(ctx, state)
	case MethodParser:
		return s.runParser(ctx, state)
	}

	err := s.runParser(ctx, state)
	if err == nil {
		return nil
	}
	if s.AI == nil {
		return err
	}
	log.Info().Err(err).Msg("Parser path unavailable, falling back to AI extraction")
	return s.runAI(ctx, state)
}

func (s *ExtractStep) runParser(ctx context.Context, state *PipelineState) error {
	if s.Text == nil {
		return errors.New("no text extractor configured")
	}
	if state.Text == "" {
		res, err := s.Text.Extract(ctx, state.Data, state.MIMEType)
		if err != nil {
			return err
		}
		state.Text, state.TextMethod = res.Text, res.Method
	}

	registry := s.Registry
	if registry == nil {
		registry = parser.DefaultRegistry()
	}
	rec, bank, err := parser.Parse(ctx, registry, state.Text)
	state.Bank = bank
	if err != nil {
		return err
	}
	state.Record, state.Method = rec, MethodParser
	return nil
}

func (s *ExtractStep) runAI(ctx context.Context, state *PipelineState) error {
	if s.AI == nil {
		return aivision.ErrNoOracle
	}
	rec, err := s.AI.Extract(ctx, state.Document.DisplayName(), state.Data, state.MIMEType)
	if err != nil {
		return err
	}
	if state.Bank == "" || state.Bank == detect.Unknown {
		state.Bank = detect.Detect(rec.Issuer)
	}
	state.Record, state.Method = rec, MethodAI
	return nil
}

// Step 4: CategorizeStep assigns categories to parser output. The AI adapter
// categorizes its own output.
type CategorizeStep struct {
	Categorizer *categorize.Categorizer
}

func (s *CategorizeStep) Name() string { return "categorize" }

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Record == nil || state.Method == MethodAI {
		return nil
	}
	c := s.Categorizer
	if c == nil {
		c = categorize.Default()
	}
	state.Record.Transactions = c.Categorize(state.Record.Transactions)
	return nil
}

// Step 5: InsightsStep puts generated insights first, followed by any oracle
// insights that are not duplicates.
type InsightsStep struct {
	Generator *insights.Generator
}

func (s *InsightsStep) Name() string { return "insights" }

func (s *InsightsStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Record == nil {
		return nil
	}
	g := s.Generator
	if g == nil {
		g = insights.New()
	}
	state.Record.Insights = MergeInsights(g.Generate(state.Record), state.Record.Insights)
	return nil
}

// MergeInsights appends extra to base, skipping case-insensitive duplicates.
func MergeInsights(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := map[string]bool{}
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// Step 6: SourceStep records provenance.
type SourceStep struct{}

func (s *SourceStep) Name() string { return "source" }

func (s *SourceStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Record == nil {
		return errors.New("no record extracted")
	}
	bank := state.Bank
	if bank == "" {
		bank = detect.Unknown
	}
	state.Record.Source = &domain.Source{
		Document: state.Document.DisplayName(),
		Method:   string(state.Method),
		Bank:     bank.String(),
	}
	return nil
}
