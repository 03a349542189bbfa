package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"go-tripplanner/pkg/template"
)

type GeminiConfig struct {
	APIKey      string
	Project     string
	Location    string
	Model       string
	Temperature float32
}

// Gemini completes requests with the Gemini API, or Vertex AI when a project
// is configured.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.Project != "" {
		cc = &genai.ClientConfig{Project: cfg.Project, Location: cfg.Location, Backend: genai.BackendVertexAI}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: model, temperature: cfg.Temperature}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	prompt, err := template.Parse(req.Template, req.Inputs)
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
