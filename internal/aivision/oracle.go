// Package aivision extracts statements by sending the raw document to a
// multimodal model and validating the JSON it returns.
package aivision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrNoOracle is returned when extraction is attempted without a model.
var ErrNoOracle = errors.New("no AI oracle configured")

// Oracle answers a prompt about an attached document.
type Oracle interface {
	Generate(ctx context.Context, prompt string, doc []byte, mimeType string) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, prompt string, doc []byte, mimeType string) (string, error)

func (f OracleFunc) Generate(ctx context.Context, prompt string, doc []byte, mimeType string) (string, error) {
	return f(ctx, prompt, doc, mimeType)
}

// GeminiOracle calls the Gemini API.
type GeminiOracle struct {
	client *genai.Client
	model  string
}

// NewGeminiOracle creates a client authenticated with apiKey.
func NewGeminiOracle(ctx context.Context, apiKey, model string) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, ErrNoOracle
	}
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiOracle: create genai client: %w", err)
	}
	return &GeminiOracle{client: client, model: model}, nil
}

// Model returns the model name requests are sent to.
func (o *GeminiOracle) Model() string { return o.model }

// Generate sends prompt plus the inline document and returns the response text.
func (o *GeminiOracle) Generate(ctx context.Context, prompt string, doc []byte, mimeType string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	if len(doc) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     doc,
			},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := o.client.Models.GenerateContent(ctx, o.model, contents, generateConfig(prompt))
	if err != nil {
		return "", fmt.Errorf("GeminiOracle.Generate: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiOracle.Generate: empty response from model")
	}
	return text, nil
}

// generateConfig asks for a JSON response for the extraction prompt only.
// Transcription prompts need plain text.
func generateConfig(prompt string) *genai.GenerateContentConfig {
	if prompt != Prompt {
		return nil
	}
	return &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
}
