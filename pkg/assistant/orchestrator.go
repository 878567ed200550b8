// Package assistant is the end-to-end "apply one natural-language
// instruction" pipeline: build the system prompt around the current form
// state, call the provider under a bounded timeout, validate whatever
// comes back, apply it, and return a fully validated new definition. The
// orchestrator is stateless across calls; every call receives the full
// current state.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/formdeck/formdeck/pkg/aischema"
	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/jsonpatch"
	"github.com/formdeck/formdeck/pkg/logging"
	"github.com/formdeck/formdeck/pkg/providers"
)

// ErrEmptyMessage is returned when the instruction is blank.
var ErrEmptyMessage = errors.New("message is required")

// ErrProviderTimeout marks a generation call that exceeded the configured
// bound. The source system had no timeout on this path at all; here a hung
// backend surfaces as a distinct, reportable failure.
var ErrProviderTimeout = errors.New("provider call timed out")

// ErrResponseParse marks raw provider text from which no JSON could be
// recovered.
var ErrResponseParse = errors.New("AI response contained no parseable JSON")

// Request is one instruction against one form state.
type Request struct {
	Message        string
	FormDefinition forms.FormDefinition
}

// Result is the orchestrator's answer. On failure, RawResponse preserves
// the provider's text when one was received, so callers can attempt their
// own best-effort recovery.
type Result struct {
	Success        bool
	FormDefinition *forms.FormDefinition
	Err            error
	RawResponse    string
}

// Orchestrator wires a provider to the validation and patch pipeline.
type Orchestrator struct {
	provider providers.Provider
	logger   *logging.Logger
	timeout  time.Duration
}

// New builds an orchestrator. A zero timeout disables the bound.
func New(provider providers.Provider, logger *logging.Logger, timeout time.Duration) *Orchestrator {
	return &Orchestrator{provider: provider, logger: logger, timeout: timeout}
}

// Process applies one instruction and returns either the new, fully
// validated definition or a typed failure. Every failure mode is recovered
// here; nothing propagates as a panic or escapes untyped.
func (o *Orchestrator) Process(ctx context.Context, req Request) Result {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Result{Err: ErrEmptyMessage}
	}

	systemPrompt := BuildSystemPrompt(req.FormDefinition)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.provider.Generate(ctx, providers.Request{
		Message:        message,
		FormDefinition: req.FormDefinition,
		SystemPrompt:   systemPrompt,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w after %s: %v", ErrProviderTimeout, o.timeout, err)
		}
		o.logger.LogAITurn("", message, "", err)
		return Result{Err: err}
	}

	if resp.ParsedJSON == nil {
		err := fmt.Errorf("%w: %s", ErrResponseParse, firstLine(resp.RawText))
		o.logger.LogAITurn("", message, resp.RawText, err)
		return Result{Err: err, RawResponse: resp.RawText}
	}

	parsed, err := aischema.Parse(resp.ParsedJSON)
	if err != nil {
		o.logger.LogAITurn("", message, resp.RawText, err)
		return Result{Err: err, RawResponse: resp.RawText}
	}

	var next forms.FormDefinition
	switch parsed.Type {
	case aischema.TypePatch:
		next, err = jsonpatch.Apply(req.FormDefinition, parsed.Operations)
		if err != nil {
			o.logger.LogAITurn("", message, resp.RawText, err)
			return Result{Err: err, RawResponse: resp.RawText}
		}
	case aischema.TypeReplace:
		// Already validated field-by-field by the schema validator.
		next = parsed.FormDefinition.Clone()
	}

	next.Fields = forms.NormalizeOrder(next.Fields)
	o.logger.LogAITurn("", message, resp.RawText, nil)
	return Result{Success: true, FormDefinition: &next, RawResponse: resp.RawText}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
