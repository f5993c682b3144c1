// Package gemini implements insight.Generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"finsight/internal/insight"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Generator asks Gemini for JSON constrained by the analysis schema.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

var _ insight.Generator = (*Generator)(nil)

// New creates a Gemini client for apiKey. baseURL overrides the API
// endpoint and is empty outside tests.
func New(ctx context.Context, apiKey, model, baseURL string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Generator{client: client, model: model, temperature: 0.2}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, p insight.Prompt) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
	if p.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.Text), cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("empty response from model")
	}
	return []byte(text), nil
}

// ResponseSchema mirrors insight.AnalysisResult.
func ResponseSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString, Description: "A summary of the recent transactions."},
			"categorizedInsights": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category":          {Type: genai.TypeString},
						"totalAmount":       {Type: genai.TypeNumber, Description: "Total amount spent in this category."},
						"percentageOfTotal": {Type: genai.TypeNumber, Description: "Share of total spending, 0 to 100."},
						"examples":          {Type: genai.TypeArray, Items: str},
					},
					Required: []string{"category", "totalAmount", "percentageOfTotal", "examples"},
				},
			},
			"suggestions": {Type: genai.TypeArray, Items: str},
		},
		Required: []string{"summary", "categorizedInsights", "suggestions"},
	}
}
