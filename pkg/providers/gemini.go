package providers

import (
	"context"

	"github.com/formdeck/formdeck/pkg/config"
	genai "google.golang.org/genai"
)

// Gemini calls the Gemini API through the official genai client, asking
// for an application/json response.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini builds the Gemini backend from resolved configuration.
func NewGemini(ctx context.Context, cfg *config.GeminiConfig) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Backend: "gemini", Message: "failed to create client", Err: err}
	}
	return &Gemini{cli: cli, model: cfg.Model}, nil
}

func (p *Gemini) Name() string { return "gemini" }

// Generate sends the prompt and instruction as a single content block and
// applies the local extraction fallback to the returned text.
func (p *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	full := req.SystemPrompt + "\n\nUser instruction: " + req.Message
	resp, err := p.cli.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, &Error{Backend: "gemini", Message: "generation failed", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &Error{Backend: "gemini", Message: "empty response"}
	}
	rawText := resp.Candidates[0].Content.Parts[0].Text
	if rawText == "" {
		return nil, &Error{Backend: "gemini", Message: "empty response"}
	}
	return buildResponse(rawText), nil
}
