package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/pkg/assistant"
	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/providers"
	"github.com/formdeck/formdeck/pkg/session"
	"github.com/formdeck/formdeck/pkg/store"
)

type cannedProvider struct {
	raw string
	err error
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Generate(_ context.Context, _ providers.Request) (*providers.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	resp := &providers.Response{RawText: p.raw}
	if parsed, err := providers.ParseLoose(p.raw); err == nil {
		resp.ParsedJSON = parsed
	}
	return resp, nil
}

func newTestServer(t *testing.T, provider providers.Provider) *Server {
	t.Helper()
	mem := store.NewMemory()
	mem.Seed(store.FormRecord{
		ID:   "f1",
		Meta: forms.Metadata{Title: "Signup"},
		Definition: forms.FormDefinition{Fields: []forms.FormField{
			{ID: "name", Type: forms.FieldTypeText, Label: "Name", Required: true, Order: 0},
		}},
	})
	manager, err := session.NewManager(mem, 8)
	require.NoError(t, err)
	orchestrator := assistant.New(provider, nil, 0)
	return NewServer(":0", manager, orchestrator, provider, nil)
}

func doRequest(handler http.HandlerFunc, method, formID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/forms/"+formID, strings.NewReader(body))
	req.SetPathValue("id", formID)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleGetForm(t *testing.T) {
	s := newTestServer(t, &cannedProvider{})

	w := doRequest(s.handleGetForm, http.MethodGet, "f1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		FormDefinition forms.FormDefinition `json:"formDefinition"`
		State          string               `json:"state"`
		Dirty          bool                 `json:"dirty"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.FormDefinition.Fields, 1)
	assert.Equal(t, string(session.StateClean), body.State)
	assert.False(t, body.Dirty)
}

func TestHandleGetFormNotFound(t *testing.T) {
	s := newTestServer(t, &cannedProvider{})
	w := doRequest(s.handleGetForm, http.MethodGet, "missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleInstructStagesProposal(t *testing.T) {
	s := newTestServer(t, &cannedProvider{raw: `{
		"type": "patch",
		"operations": [
			{"op": "add", "path": "/fields/-", "value": {"id": "email", "type": "text", "label": "Email", "required": false, "order": 1}}
		]
	}`})

	w := doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "add an email field"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		FormDefinition forms.FormDefinition `json:"formDefinition"`
		State          string               `json:"state"`
		Preview        string               `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.FormDefinition.Fields, 2)
	assert.Equal(t, string(session.StateAIProposed), body.State)
	assert.NotEmpty(t, body.Preview)

	// A second instruction is refused until the first is resolved.
	w = doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "another change"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleInstructSchemaViolation(t *testing.T) {
	s := newTestServer(t, &cannedProvider{raw: `{"type": "patch", "operations": []}`})

	w := doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "do nothing"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body errorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	assert.NotEmpty(t, body.Raw)
}

func TestHandleInstructUnparseableResponse(t *testing.T) {
	s := newTestServer(t, &cannedProvider{raw: "done, the field was added!"})

	w := doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "add a field"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body errorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "done, the field was added!", body.Raw)
}

func TestHandleInstructProviderFailure(t *testing.T) {
	s := newTestServer(t, &cannedProvider{err: &providers.Error{Backend: "canned", Message: "unreachable"}})

	w := doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "anything"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestApproveAndRevertFlow(t *testing.T) {
	s := newTestServer(t, &cannedProvider{raw: `{
		"type": "patch",
		"operations": [
			{"op": "add", "path": "/fields/-", "value": {"id": "email", "type": "text", "label": "Email", "required": false, "order": 1}}
		]
	}`})

	// Nothing staged yet.
	w := doRequest(s.handleRevert, http.MethodPost, "f1", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "add an email field"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s.handleApprove, http.MethodPost, "f1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		State string       `json:"state"`
		Diff  session.Diff `json:"diff"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(session.StateClean), body.State)
	assert.Len(t, body.Diff.Created, 1)

	// The persisted state now includes the new field.
	def, _, err := s.manager.Store().Load(context.Background(), "f1")
	require.NoError(t, err)
	assert.Len(t, def.Fields, 2)
}

func TestRevertDiscardsProposal(t *testing.T) {
	s := newTestServer(t, &cannedProvider{raw: `{
		"type": "replace",
		"formDefinition": {"fields": []}
	}`})

	w := doRequest(s.handleInstruct, http.MethodPost, "f1", `{"message": "remove everything"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s.handleRevert, http.MethodPost, "f1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		FormDefinition forms.FormDefinition `json:"formDefinition"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.FormDefinition.Fields, 1)
}
