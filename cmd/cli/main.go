package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-analyzer/internal/app"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/detect"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/export"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/parser"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/textextract"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so exports can be piped from stdout.
	log := logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(cfg, log)
	case "detect":
		runDetect(cfg, log)
	case "banks":
		runBanks()
	case "upload":
		runUpload(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse     Extract one or more credit card statements (files or gs:// URIs)")
	fmt.Println("  detect    Print the issuing bank detected for each document")
	fmt.Println("  banks     List banks with a dedicated parser")
	fmt.Println("  upload    Upload a statement to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runParse(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	method := fs.String("method", "auto", "Extraction method: auto, ai or parser")
	format := fs.String("format", "json", "Output format: json, csv, comparison or xlsx")
	out := fs.String("out", "", "Output file or gs:// URI (default stdout; required for xlsx)")
	card := fs.String("card", "", "Card to export as xlsx when several statements are parsed (card ID or last 4)")
	dataset := fs.String("bq-dataset", cfg.Cloud.BigQueryDataset, "Also write results to this BigQuery dataset (needs GCP_PROJECT)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		log.Fatal().Msg("Usage: cli parse [options] FILE|gs://URI ...")
	}
	m, err := pipeline.ParseMethod(*method)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -method")
	}
	if *format == "xlsx" && *out == "" {
		log.Fatal().Msg("-format xlsx needs -out")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, m, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer a.Close()

	b := a.Runner.Run(ctx, documents(fs.Args()))
	for _, res := range b.Results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Document, res.Err)
		}
	}
	records := b.Records()
	if len(records) == 0 {
		log.Error().Int("documents", len(b.Results)).Msg("No statement could be extracted")
		os.Exit(1)
	}

	data, err := render(*format, records, *card)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	if err := write(ctx, a.Storage, *out, data); err != nil {
		log.Fatal().Err(err).Msg("Write failed")
	}

	if *dataset != "" {
		sink, err := infraBQ.NewSink(ctx, cfg.Cloud.Project, *dataset, cfg.Cloud.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to BigQuery")
		}
		defer sink.Close()
		if err := sink.Write(ctx, b.ID, records); err != nil {
			log.Fatal().Err(err).Msg("BigQuery write failed")
		}
	}

	log.Info().
		Str("batch_id", b.ID).
		Int("statements", len(records)).
		Int("failed", len(b.Errors())).
		Msg("Parse complete")
}

// documents maps command-line arguments to pipeline inputs.
func documents(args []string) []pipeline.Document {
	docs := make([]pipeline.Document, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "gs://") {
			docs = append(docs, pipeline.Document{URI: arg})
		} else {
			docs = append(docs, pipeline.Document{Path: arg})
		}
	}
	return docs
}

// render encodes records in the requested export format.
func render(format string, records []*domain.StatementRecord, card string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "json":
		var v any = records
		if len(records) == 1 {
			v = records[0]
		}
		if err := export.JSON(&buf, v); err != nil {
			return nil, err
		}
	case "csv":
		if err := export.TransactionsCSV(&buf, records); err != nil {
			return nil, err
		}
	case "comparison":
		if err := export.ComparisonCSV(&buf, records); err != nil {
			return nil, err
		}
	case "xlsx":
		rec, err := pickCard(records, card)
		if err != nil {
			return nil, err
		}
		return export.Spreadsheet(rec)
	default:
		return nil, fmt.Errorf("unknown format %q (want json, csv, comparison or xlsx)", format)
	}
	return buf.Bytes(), nil
}

func pickCard(records []*domain.StatementRecord, card string) (*domain.StatementRecord, error) {
	if card == "" {
		if len(records) != 1 {
			return nil, fmt.Errorf("xlsx covers one statement; choose one of %d with -card", len(records))
		}
		return records[0], nil
	}
	for _, rec := range records {
		if strings.EqualFold(rec.CardID(), card) || (rec.HasLast4() && rec.CardLast4 == card) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no statement for card %q", card)
}

func write(ctx context.Context, storage *gcsuploader.Client, out string, data []byte) error {
	switch {
	case out == "" || out == "-":
		_, err := os.Stdout.Write(data)
		return err
	case strings.HasPrefix(out, "gs://"):
		if storage == nil {
			return fmt.Errorf("cannot write %s: Cloud Storage unavailable", out)
		}
		return storage.UploadBytes(ctx, out, data, gcsuploader.ContentTypeFor(out))
	default:
		return os.WriteFile(out, data, 0o644)
	}
}

func runDetect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() == 0 {
		log.Fatal().Msg("Usage: cli detect FILE ...")
	}

	ctx := logger.WithContext(context.Background(), log)
	// Detection reads the text layer only; no OCR or model calls.
	extractor := textextract.New(nil, cfg.Batch.MinTextChars)

	failed := false
	for _, path := range fs.Args() {
		bank, err := detectFile(ctx, extractor, path)
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s\t%s\n", path, bank)
	}
	if failed {
		os.Exit(1)
	}
}

func detectFile(ctx context.Context, extractor *textextract.Extractor, path string) (detect.Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime, err := pipeline.SniffMIME(data)
	if err != nil {
		return "", err
	}
	res, err := extractor.Extract(ctx, data, mime)
	if err != nil {
		return "", err
	}
	return detect.Detect(res.Text), nil
}

func runBanks() {
	for _, bank := range parser.DefaultRegistry().Banks() {
		fmt.Println(bank)
	}
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.Cloud.Bucket, "GCS bucket name (or set GCS_BUCKET)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local PDF, PNG or JPEG file")
	_ = fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)
	client, err := gcsuploader.New(ctx, cfg.Cloud.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer client.Close()

	uri := gcsuploader.ObjectURI(*bucketName, *objectName)
	if err := client.UploadFile(ctx, uri, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}
