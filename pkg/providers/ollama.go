package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/formdeck/formdeck/pkg/config"
	ollama "github.com/ollama/ollama/api"
)

// Ollama runs generation against a local Ollama instance through the
// official client, with format "json" requested so the model is steered
// toward structured output.
type Ollama struct {
	client *ollama.Client
	model  string
}

// NewOllama builds the Ollama backend from resolved configuration.
func NewOllama(cfg *config.OllamaConfig) (*Ollama, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &Error{Backend: "ollama", Message: fmt.Sprintf("invalid base URL %q", cfg.BaseURL), Err: err}
	}
	return &Ollama{
		client: ollama.NewClient(base, http.DefaultClient),
		model:  cfg.Model,
	}, nil
}

func (p *Ollama) Name() string { return "ollama" }

// Generate runs a chat exchange. The response is accumulated across
// streamed chunks; streaming is disabled so a single chunk arrives.
func (p *Ollama) Generate(ctx context.Context, req Request) (*Response, error) {
	stream := false
	chatReq := &ollama.ChatRequest{
		Model: p.model,
		Messages: []ollama.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Message},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": generationTemperature,
		},
	}

	var sb strings.Builder
	err := p.client.Chat(ctx, chatReq, func(res ollama.ChatResponse) error {
		sb.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return nil, &Error{Backend: "ollama", Message: "chat failed", Err: err}
	}

	rawText := sb.String()
	if strings.TrimSpace(rawText) == "" {
		return nil, &Error{Backend: "ollama", Message: "empty response"}
	}
	return buildResponse(rawText), nil
}

// CheckHealth verifies the instance is reachable and the configured model
// is pulled. Bounded by its own 5 second timeout.
func (p *Ollama) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	list, err := p.client.List(ctx)
	if err != nil {
		return &Error{Backend: "ollama", Message: "failed to connect", Err: err}
	}
	for _, m := range list.Models {
		if m.Name == p.model || strings.TrimSuffix(m.Name, ":latest") == p.model {
			return nil
		}
	}
	return &Error{Backend: "ollama", Message: fmt.Sprintf("model %q not found", p.model)}
}
