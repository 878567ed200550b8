// Package config loads formdeck configuration from the environment, with
// optional .env support. Backend selection happens here, once: missing
// credentials for the selected backend are a startup error, not something
// discovered on the first request.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// BackendKind names one of the supported language-model backends.
type BackendKind string

const (
	BackendOpenAI     BackendKind = "openai"
	BackendOpenRouter BackendKind = "openrouter"
	BackendOllama     BackendKind = "ollama"
	BackendGemini     BackendKind = "gemini"
)

// OpenAIConfig holds connection parameters for the OpenAI backend.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// OpenRouterConfig holds connection parameters for the OpenRouter backend.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds connection parameters for a local Ollama instance.
type OllamaConfig struct {
	BaseURL string
	Model   string
}

// GeminiConfig holds connection parameters for the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Config is the resolved process configuration.
type Config struct {
	Provider   BackendKind
	OpenAI     *OpenAIConfig
	OpenRouter *OpenRouterConfig
	Ollama     *OllamaConfig
	Gemini     *GeminiConfig

	// RequestTimeout bounds a single generation call. The health-check
	// path uses its own, much shorter timeout.
	RequestTimeout time.Duration

	ListenAddr  string
	DatabaseURL string
	LogFile     string
}

const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenRouterModel = "openai/gpt-4o-mini"
	defaultOllamaBaseURL   = "http://localhost:11434"
	defaultOllamaModel     = "llama3.2"
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultRequestTimeout  = 120 * time.Second
	defaultListenAddr      = ":8080"
	defaultLogFile         = ".formdeck/formdeck.log"
)

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	provider := BackendKind(strings.TrimSpace(getEnv("LLM_PROVIDER", string(BackendOpenAI))))

	cfg := &Config{
		Provider:       provider,
		RequestTimeout: defaultRequestTimeout,
		ListenAddr:     getEnv("FORMDECK_LISTEN_ADDR", defaultListenAddr),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogFile:        getEnv("FORMDECK_LOG_FILE", defaultLogFile),
	}

	if raw := os.Getenv("FORMDECK_REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FORMDECK_REQUEST_TIMEOUT %q: %w", raw, err)
		}
		cfg.RequestTimeout = d
	}

	switch provider {
	case BackendOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is %q", provider)
		}
		cfg.OpenAI = &OpenAIConfig{
			APIKey: apiKey,
			Model:  getEnv("OPENAI_MODEL", defaultOpenAIModel),
		}
	case BackendOpenRouter:
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPEN_ROUTER_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER is %q", provider)
		}
		cfg.OpenRouter = &OpenRouterConfig{
			APIKey: apiKey,
			Model:  getEnv("OPENROUTER_MODEL", defaultOpenRouterModel),
		}
	case BackendOllama:
		cfg.Ollama = &OllamaConfig{
			BaseURL: strings.TrimRight(getEnv("OLLAMA_BASE_URL", defaultOllamaBaseURL), "/"),
			Model:   getEnv("OLLAMA_MODEL", defaultOllamaModel),
		}
	case BackendGemini:
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is %q", provider)
		}
		cfg.Gemini = &GeminiConfig{
			APIKey: apiKey,
			Model:  getEnv("GEMINI_MODEL", defaultGeminiModel),
		}
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER %q: must be one of openai, openrouter, ollama, gemini", provider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
