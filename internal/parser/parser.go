// Package parser turns extracted statement text into a StatementRecord using
// one regex layout per supported bank.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dvloznov/statement-analyzer/internal/detect"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// ErrUnsupportedBank is returned when no parser handles the detected bank.
var ErrUnsupportedBank = errors.New("unsupported bank")

// Parser extracts a statement for a single bank. Parse never fails: fields it
// cannot find are left unknown.
type Parser interface {
	Bank() detect.Bank
	Parse(text string) *domain.StatementRecord
}

// Registry maps banks to parsers. Register is not safe for concurrent use;
// build the registry before sharing it.
type Registry struct {
	parsers map[detect.Bank]Parser
}

// NewRegistry returns a registry holding parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[detect.Bank]Parser, len(parsers))}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// DefaultRegistry wires every built-in bank parser.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewHDFC(),
		NewICICI(),
		NewSBI(),
		NewAxis(),
		NewKotak(),
	)
}

// Register adds p, replacing any parser already registered for its bank.
func (r *Registry) Register(p Parser) {
	if p == nil {
		return
	}
	r.parsers[p.Bank()] = p
}

// Lookup returns the parser for bank.
func (r *Registry) Lookup(bank detect.Bank) (Parser, bool) {
	p, ok := r.parsers[bank]
	return p, ok
}

// Banks lists registered banks in detection priority order. Banks unknown to
// the detector follow, sorted by name.
func (r *Registry) Banks() []detect.Bank {
	out := make([]detect.Bank, 0, len(r.parsers))
	seen := map[detect.Bank]bool{}
	for _, b := range detect.Supported() {
		if _, ok := r.parsers[b]; ok {
			out = append(out, b)
			seen[b] = true
		}
	}
	var rest []detect.Bank
	for b := range r.parsers {
		if !seen[b] {
			rest = append(rest, b)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

// Parse detects the bank in text and runs its parser.
func Parse(ctx context.Context, registry *Registry, text string) (*domain.StatementRecord, detect.Bank, error) {
	log := logger.FromContext(ctx)

	bank := detect.Detect(text)
	if bank == detect.Unknown {
		return nil, bank, ErrUnsupportedBank
	}
	p, ok := registry.Lookup(bank)
	if !ok {
		return nil, bank, fmt.Errorf("%w: %s", ErrUnsupportedBank, bank)
	}

	rec := p.Parse(text)
	log.Debug().
		Str("bank", bank.String()).
		Int("transactions", len(rec.Transactions)).
		Bool("has_last4", rec.HasLast4()).
		Bool("total_due_known", rec.TotalAmountDue.Valid).
		Msg("Parsed statement text")
	return rec, bank, nil
}
