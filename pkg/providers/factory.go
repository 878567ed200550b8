package providers

import (
	"context"
	"fmt"

	"github.com/formdeck/formdeck/pkg/config"
)

// New resolves the configured backend into a Provider. This runs once at
// startup; the returned provider is held for the process lifetime rather
// than re-selected per request.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.BackendOpenAI:
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai backend selected but not configured")
		}
		return NewOpenAI(cfg.OpenAI), nil
	case config.BackendOpenRouter:
		if cfg.OpenRouter == nil {
			return nil, fmt.Errorf("openrouter backend selected but not configured")
		}
		return NewOpenRouter(cfg.OpenRouter), nil
	case config.BackendOllama:
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("ollama backend selected but not configured")
		}
		return NewOllama(cfg.Ollama)
	case config.BackendGemini:
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini backend selected but not configured")
		}
		return NewGemini(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
