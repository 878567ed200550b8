// Package providers implements the uniform contract over interchangeable
// language-model backends. Every backend takes a user instruction plus the
// current form definition and returns the raw response text along with a
// best-effort parsed JSON value. Callers treat all backend failures alike;
// the concrete reason only travels in the error message.
package providers

import (
	"context"
	"fmt"

	"github.com/formdeck/formdeck/pkg/forms"
)

// Request is one generation call.
type Request struct {
	Message        string
	FormDefinition forms.FormDefinition
	SystemPrompt   string
}

// Response is the backend's answer. ParsedJSON is nil when no JSON could
// be recovered from RawText; deciding what that means is the caller's job.
type Response struct {
	RawText    string
	ParsedJSON any
}

// Provider is the single contract the orchestrator speaks. The concrete
// backend is selected by configuration once at startup.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// HealthChecker is implemented by backends that support a connectivity
// probe. The probe uses its own short timeout, separate from generation.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Error normalizes every backend failure: unreachable service, auth
// failure, empty response. Callers do not distinguish among them.
type Error struct {
	Backend string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider error: %s: %v", e.Backend, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error: %s", e.Backend, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// generationTemperature is deliberately low: the model is editing
// structured data, not writing prose.
const generationTemperature = 0.3

// buildResponse packages raw text with the extraction fallback applied.
// Extraction failure is not an error at this level.
func buildResponse(rawText string) *Response {
	resp := &Response{RawText: rawText}
	if parsed, err := ParseLoose(rawText); err == nil {
		resp.ParsedJSON = parsed
	}
	return resp
}
