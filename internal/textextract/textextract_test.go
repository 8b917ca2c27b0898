package textextract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOCR struct {
	text  string
	err   error
	calls int
	mime  string
}

func (f *fakeOCR) ExtractText(ctx context.Context, doc []byte, mimeType string) (string, error) {
	f.calls++
	f.mime = mimeType
	return f.text, f.err
}

func TestExtract_ImageGoesToOCR(t *testing.T) {
	ocr := &fakeOCR{text: "HDFC Bank statement"}
	res, err := New(ocr, 0).Extract(context.Background(), []byte("png"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, "HDFC Bank statement", res.Text)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "image/png", ocr.mime)
}

func TestExtract_UnreadablePDFFallsBackToOCR(t *testing.T) {
	ocr := &fakeOCR{text: "page one\n\f\npage two"}
	res, err := New(ocr, 0).Extract(context.Background(), []byte("not a pdf"), "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, ocr.calls)
}

func TestExtract_NoText(t *testing.T) {
	tests := []struct {
		name string
		ocr  OCR
	}{
		{"no ocr configured", nil},
		{"ocr fails", &fakeOCR{err: errors.New("tesseract missing")}},
		{"ocr returns blanks", &fakeOCR{text: "  \n "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.ocr, 0).Extract(context.Background(), []byte("garbage"), "application/pdf")
			assert.ErrorIs(t, err, ErrNoText)
		})
	}
}

func TestExtract_UnsupportedMIME(t *testing.T) {
	_, err := New(&fakeOCR{text: "x"}, 0).Extract(context.Background(), []byte("x"), "text/csv")
	assert.ErrorIs(t, err, ErrUnsupportedMIME)
}

// fakeRunner emulates pdftoppm by writing page images, and tesseract by
// echoing the image name.
type fakeRunner struct {
	pages    int
	failPage string
	calls    []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= r.pages; i++ {
			if err := os.WriteFile(prefix+"-"+string(rune('0'+i))+".png", []byte("img"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		base := filepath.Base(args[0])
		if base == r.failPage {
			return nil, []byte("bad image"), errors.New("exit status 1")
		}
		return []byte("text of " + base + "\n"), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func newTestOCR(r Runner) *TesseractOCR {
	o := NewTesseractOCR()
	o.Runner = r
	return o
}

func TestTesseractOCR_PDF(t *testing.T) {
	r := &fakeRunner{pages: 3, failPage: "page-2.png"}

	text, err := newTestOCR(r).ExtractText(context.Background(), []byte("%PDF"), "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, "text of page-1.png\n\f\ntext of page-3.png", text, "failed pages are skipped")
	require.Len(t, r.calls, 4)
	assert.Contains(t, r.calls[0], "pdftoppm -r 300 -png")
	assert.Contains(t, r.calls[1], "stdout -l eng")
}

func TestTesseractOCR_NoPagesRendered(t *testing.T) {
	_, err := newTestOCR(&fakeRunner{}).ExtractText(context.Background(), []byte("%PDF"), "application/pdf")
	assert.Error(t, err)
}

func TestTesseractOCR_Image(t *testing.T) {
	r := &fakeRunner{}
	text, err := newTestOCR(r).ExtractText(context.Background(), []byte("jpg"), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "text of input.jpg", text)
	require.Len(t, r.calls, 1)
	assert.True(t, strings.HasPrefix(r.calls[0], "tesseract "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", truncate("abcdef", 2))
}
