package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/pkg/config"
)

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		wantName string
	}{
		{
			name: "openai",
			cfg: &config.Config{
				Provider: config.BackendOpenAI,
				OpenAI:   &config.OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini"},
			},
			wantName: "openai",
		},
		{
			name: "openrouter",
			cfg: &config.Config{
				Provider:   config.BackendOpenRouter,
				OpenRouter: &config.OpenRouterConfig{APIKey: "k", Model: "openai/gpt-4o-mini"},
			},
			wantName: "openrouter",
		},
		{
			name: "ollama",
			cfg: &config.Config{
				Provider: config.BackendOllama,
				Ollama:   &config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2"},
			},
			wantName: "ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Provider: "bedrock"})
	assert.Error(t, err)
}

func TestNewRejectsMissingBackendConfig(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Provider: config.BackendOpenAI})
	assert.Error(t, err)
}
