package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// chatMessage, chatRequest and chatResponse mirror the OpenAI-compatible
// chat completions wire format shared by OpenAI and OpenRouter.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// chatClient performs chat completion calls against an OpenAI-compatible
// endpoint. No timeout is set on the HTTP client itself; the caller bounds
// the call through the request context.
type chatClient struct {
	backend    string
	endpoint   string
	apiKey     string
	model      string
	headers    map[string]string
	httpClient *http.Client
}

func newChatClient(backend, endpoint, apiKey, model string) *chatClient {
	return &chatClient{
		backend:    backend,
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

// complete sends one system+user exchange and returns the assistant text.
func (c *chatClient) complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    generationTemperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Backend: c.backend, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Backend: c.backend, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Backend: c.backend, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Backend: c.backend, Message: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Backend: c.backend,
			Message: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(string(data), 500)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &Error{Backend: c.backend, Message: "failed to decode response", Err: err}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &Error{Backend: c.backend, Message: "empty response"}
	}
	return parsed.Choices[0].Message.Content, nil
}

// checkEndpoint probes the backend with a short GET, used by health checks.
func (c *chatClient) checkEndpoint(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Backend: c.backend, Message: "failed to build health request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Backend: c.backend, Message: "health check failed", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &Error{Backend: c.backend, Message: fmt.Sprintf("health check returned status %d", resp.StatusCode)}
	}
	return nil
}

// healthCheckTimeout bounds the diagnostic path only; generation calls are
// bounded by the caller's context.
const healthCheckTimeout = 5 * time.Second

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
