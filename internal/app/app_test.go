package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/statement-analyzer/internal/aivision"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/textextract"
)

func TestSelectOCR(t *testing.T) {
	oracle := aivision.OracleFunc(func(context.Context, string, []byte, string) (string, error) {
		return "", nil
	})
	cfg := func(engine string) *config.Config {
		c := config.FromEnv()
		c.OCR.Engine = engine
		c.OCR.Tesseract = "/nonexistent/tesseract"
		return c
	}
	log := zerolog.Nop()

	assert.Nil(t, selectOCR(cfg("none"), oracle, log))
	assert.Nil(t, selectOCR(cfg("ai"), nil, log))

	ocr := selectOCR(cfg("tesseract"), nil, log)
	if assert.IsType(t, &textextract.TesseractOCR{}, ocr) {
		assert.Equal(t, "/nonexistent/tesseract", ocr.(*textextract.TesseractOCR).Tesseract)
	}

	assert.IsType(t, &aivision.TextOCR{}, selectOCR(cfg("ai"), oracle, log))
	assert.IsType(t, &aivision.TextOCR{}, selectOCR(cfg("auto"), oracle, log), "auto falls back to the oracle without tesseract")
	assert.Nil(t, selectOCR(cfg("auto"), nil, log))
}
