// Package gemini provides an Annotator backed by Google's Gemini models
// through the genai SDK. It uses the same prompt and reply parsing as the
// OpenAI-compatible annotator.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/gonkalabs/neam-go/internal/markup"
	"github.com/gonkalabs/neam-go/internal/markup/llmannotator"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the part of *genai.Models the annotator needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Annotator asks a Gemini model for the named entities in a text.
type Annotator struct {
	models generator
	model  string
}

var _ markup.Annotator = (*Annotator)(nil)

// New creates an Annotator using the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Annotator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newAnnotator(client.Models, model), nil
}

func newAnnotator(models generator, model string) *Annotator {
	if model == "" {
		model = DefaultModel
	}
	return &Annotator{models: models, model: model}
}

// Annotate returns the mentions the model lists for text. It is safe for
// concurrent use.
func (a *Annotator) Annotate(ctx context.Context, text string) ([]markup.Mention, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	slog.Info("gemini: annotating", "model", a.model, "text_len", len(text))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(llmannotator.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
	}

	resp, err := a.models.GenerateContent(ctx, a.model, genai.Text("Text to annotate:\n"+text), config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}

	mentions, err := llmannotator.ParseMentions(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	slog.Info("gemini: annotated", "mentions", len(mentions))
	return mentions, nil
}
