package providers

import (
	"context"

	"github.com/formdeck/formdeck/pkg/config"
)

const (
	openRouterEndpoint  = "https://openrouter.ai/api/v1/chat/completions"
	openRouterModelsURL = "https://openrouter.ai/api/v1/models"
)

// OpenRouter speaks the same OpenAI-compatible protocol against the
// OpenRouter gateway, which fronts many upstream models.
type OpenRouter struct {
	chat *chatClient
}

// NewOpenRouter builds the OpenRouter backend from resolved configuration.
func NewOpenRouter(cfg *config.OpenRouterConfig) *OpenRouter {
	chat := newChatClient("openrouter", openRouterEndpoint, cfg.APIKey, cfg.Model)
	chat.headers = map[string]string{
		"HTTP-Referer": "https://github.com/formdeck/formdeck",
		"X-Title":      "formdeck",
	}
	return &OpenRouter{chat: chat}
}

func (p *OpenRouter) Name() string { return "openrouter" }

// Generate sends the system prompt and user message, then applies the
// local extraction fallback to whatever text comes back.
func (p *OpenRouter) Generate(ctx context.Context, req Request) (*Response, error) {
	raw, err := p.chat.complete(ctx, req.SystemPrompt, req.Message)
	if err != nil {
		return nil, err
	}
	return buildResponse(raw), nil
}

// CheckHealth verifies connectivity against the models endpoint.
func (p *OpenRouter) CheckHealth(ctx context.Context) error {
	return p.chat.checkEndpoint(ctx, openRouterModelsURL)
}
