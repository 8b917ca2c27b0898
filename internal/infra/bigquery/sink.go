package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

const (
	statementsTable   = "statements"
	transactionsTable = "transactions"
)

// RowInserter streams rows into a table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Sink appends statements and their transactions to two tables.
type Sink struct {
	client       *bigquery.Client
	statements   RowInserter
	transactions RowInserter
	now          func() time.Time
}

// NewSink connects to project and writes into dataset.
func NewSink(ctx context.Context, projectID, datasetID, credentialsFile string) (*Sink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSink: creating client: %w", err)
	}
	ds := client.Dataset(datasetID)
	s := NewSinkWithInserters(ds.Table(statementsTable).Inserter(), ds.Table(transactionsTable).Inserter())
	s.client = client
	return s, nil
}

// NewSinkWithInserters builds a Sink over arbitrary inserters.
func NewSinkWithInserters(statements, transactions RowInserter) *Sink {
	return &Sink{statements: statements, transactions: transactions, now: time.Now}
}

// Close closes the BigQuery client, if the sink owns one.
func (s *Sink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Write inserts every record of a batch. Statement rows go first so that
// transactions never reference a missing statement.
func (s *Sink) Write(ctx context.Context, batchID string, records []*domain.StatementRecord) error {
	now := s.now().UTC()

	var (
		stmts []*StatementRow
		txs   []*TransactionRow
	)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		st, rows, err := ToRows(rec, batchID, now)
		if err != nil {
			return err
		}
		stmts = append(stmts, st)
		txs = append(txs, rows...)
	}
	if len(stmts) == 0 {
		return nil
	}

	if err := s.statements.Put(ctx, stmts); err != nil {
		return fmt.Errorf("Write: inserting statements: %w", err)
	}
	if len(txs) > 0 {
		if err := s.transactions.Put(ctx, txs); err != nil {
			return fmt.Errorf("Write: inserting transactions: %w", err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("batch_id", batchID).
		Int("statements", len(stmts)).
		Int("transactions", len(txs)).
		Msg("Wrote batch to BigQuery")
	return nil
}
