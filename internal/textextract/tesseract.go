package textextract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		log.Error().Err(err).
			Str("cmd", name).
			Str("args", strings.Join(args, " ")).
			Int64("duration_ms", dur.Milliseconds()).
			Str("stderr", truncate(errb.String(), 8<<10)).
			Msg("exec failed")
	} else {
		log.Debug().
			Str("cmd", name).
			Int64("duration_ms", dur.Milliseconds()).
			Int("stdout_bytes", out.Len()).
			Msg("exec ok")
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// TesseractOCR renders PDFs with pdftoppm and recognizes each page with tesseract.
type TesseractOCR struct {
	Runner    Runner
	Tesseract string
	Pdftoppm  string
	DPI       int
	Language  string
	MaxPages  int
}

// NewTesseractOCR returns an OCR using the binaries on PATH.
func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{
		Runner:    ExecRunner{},
		Tesseract: "tesseract",
		Pdftoppm:  "pdftoppm",
		DPI:       300,
		Language:  "eng",
	}
}

// ExtractText writes doc to a temp dir and OCRs it. Pages are separated by
// form feeds.
func (t *TesseractOCR) ExtractText(ctx context.Context, doc []byte, mimeType string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "stmt-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("dir", tmpDir).Msg("Failed to remove temp dir")
		}
	}()

	in := filepath.Join(tmpDir, "input"+extensionFor(mimeType))
	if err := os.WriteFile(in, doc, 0o600); err != nil {
		return "", err
	}

	if mimeType != "application/pdf" {
		return t.recognize(ctx, in)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, errb, err := t.Runner.Run(ctx, t.Pdftoppm, "-r", strconv.Itoa(t.DPI), "-png", in, prefix); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if t.MaxPages > 0 && len(matches) > t.MaxPages {
		matches = matches[:t.MaxPages]
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no images")
	}

	var b strings.Builder
	for _, img := range matches {
		txt, err := t.recognize(ctx, img)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("page", filepath.Base(img)).Msg("Page OCR failed")
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

func (t *TesseractOCR) recognize(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	out, errb, err := t.Runner.Run(ctx, t.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return strings.TrimSpace(string(out)), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ""
}
