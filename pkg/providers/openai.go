package providers

import (
	"context"

	"github.com/formdeck/formdeck/pkg/config"
)

const (
	openAIEndpoint  = "https://api.openai.com/v1/chat/completions"
	openAIModelsURL = "https://api.openai.com/v1/models"
)

// OpenAI calls the OpenAI chat completions API with a JSON-only response
// constraint.
type OpenAI struct {
	chat *chatClient
}

// NewOpenAI builds the OpenAI backend from resolved configuration.
func NewOpenAI(cfg *config.OpenAIConfig) *OpenAI {
	return &OpenAI{chat: newChatClient("openai", openAIEndpoint, cfg.APIKey, cfg.Model)}
}

func (p *OpenAI) Name() string { return "openai" }

// Generate sends the system prompt and user message, then applies the
// local extraction fallback to whatever text comes back.
func (p *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	raw, err := p.chat.complete(ctx, req.SystemPrompt, req.Message)
	if err != nil {
		return nil, err
	}
	return buildResponse(raw), nil
}

// CheckHealth verifies the API key against the models endpoint.
func (p *OpenAI) CheckHealth(ctx context.Context) error {
	return p.chat.checkEndpoint(ctx, openAIModelsURL)
}
