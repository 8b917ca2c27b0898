package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-analyzer/internal/app"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/export"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/jobs/inmemory"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

// The worker drains a list of statement URIs through the retrying job queue
// and writes one JSON file per statement.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var (
		list    = flag.String("list", "-", "File with one gs:// URI or path per line (- for stdin)")
		outDir  = flag.String("out", "", "Directory or gs:// prefix for per-statement JSON")
		method  = flag.String("method", "auto", "Extraction method: auto, ai or parser")
		dataset = flag.String("bq-dataset", cfg.Cloud.BigQueryDataset, "Also write results to this BigQuery dataset")
	)
	flag.Parse()

	log := logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	m, err := pipeline.ParseMethod(*method)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -method")
	}
	sources, err := readList(*list)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read list")
	}
	if len(sources) == 0 {
		log.Fatal().Msg("No documents to process")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer a.Close()

	var sink *infraBQ.Sink
	if *dataset != "" {
		sink, err = infraBQ.NewSink(ctx, cfg.Cloud.Project, *dataset, cfg.Cloud.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to BigQuery")
		}
		defer sink.Close()
	}

	runID := uuid.NewString()
	handler := jobs.NewStatementHandler(a.Processor)
	process := func(ctx context.Context, job *jobs.ProcessStatementJob) (*domain.StatementRecord, error) {
		rec, err := handler(ctx, job)
		if err != nil {
			return nil, err
		}
		if err := store(ctx, a.Storage, *outDir, job.DocumentName, rec); err != nil {
			return nil, err
		}
		if sink != nil {
			if err := sink.Write(ctx, runID, []*domain.StatementRecord{rec}); err != nil {
				return nil, err
			}
		}
		return rec, nil
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(sources), jobStore,
		inmemory.WithWorkers(cfg.Queue.Workers),
		inmemory.WithMaxRetries(cfg.Queue.MaxRetries),
	)
	if err := jobQueue.Start(ctx, process); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	for _, src := range sources {
		job := &jobs.ProcessStatementJob{
			DocumentName: documentName(src),
			SourceURI:    src,
			Method:       string(m),
		}
		if err := jobQueue.Publish(ctx, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to enqueue job")
		}
	}
	log.Info().Str("run_id", runID).Int("documents", len(sources)).Msg("Worker started")

	completed, failed := waitForJobs(ctx, jobStore, len(sources))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().
		Str("run_id", runID).
		Int("completed", completed).
		Int("failed", failed).
		Msg("Worker finished")
	if failed > 0 || completed < len(sources) {
		os.Exit(1)
	}
}

// waitForJobs polls until every job is terminal or ctx ends.
func waitForJobs(ctx context.Context, s jobs.JobStore, total int) (completed, failed int) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		completed, failed = countTerminal(ctx, s)
		if completed+failed >= total {
			return completed, failed
		}
		select {
		case <-ctx.Done():
			return completed, failed
		case <-ticker.C:
		}
	}
}

func countTerminal(ctx context.Context, s jobs.JobStore) (completed, failed int) {
	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		return 0, 0
	}
	for _, j := range all {
		switch j.Status {
		case jobs.JobStatusCompleted:
			completed++
		case jobs.JobStatusFailed:
			failed++
		}
	}
	return completed, failed
}

func readList(name string) ([]string, error) {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return parseList(r)
}

// parseList returns non-blank lines, skipping # comments.
func parseList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func documentName(src string) string {
	if strings.HasPrefix(src, "gs://") {
		return pipeline.FilenameFromURI(src)
	}
	return filepath.Base(src)
}

// outputName maps a document name to its JSON file name.
func outputName(document string) string {
	return strings.TrimSuffix(document, path.Ext(document)) + ".json"
}

func store(ctx context.Context, storage *gcsuploader.Client, outDir, document string, rec *domain.StatementRecord) error {
	if outDir == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := export.JSON(&buf, rec); err != nil {
		return jobs.Permanent(err)
	}
	name := outputName(document)

	if strings.HasPrefix(outDir, "gs://") {
		if storage == nil {
			return jobs.Permanent(fmt.Errorf("cannot write to %s: Cloud Storage unavailable", outDir))
		}
		return storage.UploadBytes(ctx, strings.TrimSuffix(outDir, "/")+"/"+name, buf.Bytes(), "application/json")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return jobs.Permanent(err)
	}
	return os.WriteFile(filepath.Join(outDir, name), buf.Bytes(), 0o644)
}
