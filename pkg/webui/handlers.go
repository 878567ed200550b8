package webui

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/formdeck/formdeck/pkg/aischema"
	"github.com/formdeck/formdeck/pkg/assistant"
	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/jsonpatch"
	"github.com/formdeck/formdeck/pkg/providers"
	"github.com/formdeck/formdeck/pkg/session"
	"github.com/formdeck/formdeck/pkg/store"
)

type errorPayload struct {
	Error      string                  `json:"error"`
	Violations []forms.ValidationError `json:"violations,omitempty"`
	Raw        string                  `json:"raw,omitempty"`
}

// handleGetForm returns the session's current buffer, metadata and
// commit-protocol state.
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formDefinition": sess.Buffer(),
		"metadata":       sess.Metadata(),
		"state":          sess.State(),
		"dirty":          sess.Dirty(),
	})
}

// handleInstruct runs one AI turn against the form and stages the result
// for approval.
func (s *Server) handleInstruct(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid JSON body"})
		return
	}

	sess, err := s.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	turn, current, err := sess.BeginTurn()
	if err != nil {
		writeError(w, err)
		return
	}

	result := s.orchestrator.Process(r.Context(), assistant.Request{
		Message:        body.Message,
		FormDefinition: current,
	})
	if !result.Success {
		writeResultError(w, result)
		return
	}

	if err := sess.StageResult(turn, *result.FormDefinition); err != nil {
		writeError(w, err)
		return
	}

	preview, _ := sess.PendingPreview()
	writeJSON(w, http.StatusOK, map[string]any{
		"formDefinition": *result.FormDefinition,
		"state":          sess.State(),
		"preview":        preview,
	})
}

// handleApprove persists the pending change.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	diff, err := sess.Approve(r.Context(), s.manager.Store())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formDefinition": sess.Buffer(),
		"state":          sess.State(),
		"diff":           diff,
	})
}

// handleRevert discards the pending change.
func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	def, err := sess.Revert()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formDefinition": def,
		"state":          sess.State(),
	})
}

// handlePreview renders the pending change as a line diff.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	preview, ok := sess.PendingPreview()
	if !ok {
		writeError(w, session.ErrNoPendingEdit)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preview": preview})
}

// writeResultError maps a failed orchestrator result to a status code,
// preserving raw provider text where recovery on the client is possible.
func writeResultError(w http.ResponseWriter, result assistant.Result) {
	payload := errorPayload{Raw: result.RawResponse}
	if result.Err != nil {
		payload.Error = result.Err.Error()
	}

	var schemaErr *aischema.SchemaError
	var resultErr *jsonpatch.ResultError
	switch {
	case errors.Is(result.Err, assistant.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, payload)
	case errors.Is(result.Err, assistant.ErrProviderTimeout):
		writeJSON(w, http.StatusGatewayTimeout, payload)
	case errors.Is(result.Err, assistant.ErrResponseParse):
		writeJSON(w, http.StatusBadGateway, payload)
	case errors.As(result.Err, &schemaErr), errors.As(result.Err, &resultErr),
		isPatchError(result.Err):
		writeJSON(w, http.StatusUnprocessableEntity, payload)
	default:
		var provErr *providers.Error
		if errors.As(result.Err, &provErr) {
			writeJSON(w, http.StatusBadGateway, payload)
			return
		}
		writeJSON(w, http.StatusInternalServerError, payload)
	}
}

func isPatchError(err error) bool {
	var pathErr *jsonpatch.PathError
	var malformedErr *jsonpatch.MalformedError
	var applyErr *jsonpatch.ApplyError
	return errors.As(err, &pathErr) || errors.As(err, &malformedErr) || errors.As(err, &applyErr)
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *session.ValidationFailedError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
	case errors.Is(err, session.ErrEditPending),
		errors.Is(err, session.ErrStaleResult),
		errors.Is(err, session.ErrNoPendingEdit):
		writeJSON(w, http.StatusConflict, errorPayload{Error: err.Error()})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorPayload{
			Error:      "form is not ready to save",
			Violations: validationErr.Violations,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: err.Error()})
	}
}
