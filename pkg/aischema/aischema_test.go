package aischema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/pkg/forms"
)

func TestParseBytesPatch(t *testing.T) {
	resp, err := ParseBytes([]byte(`{
		"type": "patch",
		"operations": [
			{"op": "add", "path": "/fields/-", "value": {"id": "email", "type": "text", "label": "Email", "required": false, "order": 2}},
			{"op": "replace", "path": "/fields/0/label", "value": "Full Name"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, TypePatch, resp.Type)
	require.Len(t, resp.Operations, 2)
	assert.Equal(t, "add", resp.Operations[0].Op)
	assert.Equal(t, "/fields/0/label", resp.Operations[1].Path)
	assert.Nil(t, resp.FormDefinition)
}

func TestParseBytesReplace(t *testing.T) {
	resp, err := ParseBytes([]byte(`{
		"type": "replace",
		"formDefinition": {
			"fields": [
				{"id": "name", "type": "text", "label": "Name", "required": true, "order": 0},
				{"id": "age", "type": "number", "label": "Age", "required": false, "order": 1, "min": 0, "max": 120}
			]
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, TypeReplace, resp.Type)
	require.NotNil(t, resp.FormDefinition)
	require.Len(t, resp.FormDefinition.Fields, 2)
	require.NotNil(t, resp.FormDefinition.Fields[1].Min)
	assert.Equal(t, 0.0, *resp.FormDefinition.Fields[1].Min)
}

func TestParseRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not an object", raw: `[1, 2, 3]`},
		{name: "missing type", raw: `{"operations": []}`},
		{name: "non-string type", raw: `{"type": 7}`},
		{name: "unknown type", raw: `{"type": "delete-everything"}`},
		{name: "patch without operations", raw: `{"type": "patch"}`},
		{name: "empty operations", raw: `{"type": "patch", "operations": []}`},
		{name: "operations not an array", raw: `{"type": "patch", "operations": {}}`},
		{name: "replace without formDefinition", raw: `{"type": "replace"}`},
		{name: "replace without fields", raw: `{"type": "replace", "formDefinition": {}}`},
		{name: "not JSON at all", raw: `the form looks great!`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseBytes([]byte(tt.raw))
			assert.Nil(t, resp)
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Violations)
		})
	}
}

func TestParsePatchReportsEveryBadOperation(t *testing.T) {
	_, err := ParseBytes([]byte(`{
		"type": "patch",
		"operations": [
			{"op": "merge", "path": "/fields/0"},
			{"op": "add", "path": "/fields/-"},
			"not an object"
		]
	}`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 3)
	assert.Equal(t, "/operations/0", schemaErr.Violations[0].Path)
	assert.Equal(t, "/operations/1", schemaErr.Violations[1].Path)
	assert.Equal(t, "/operations/2", schemaErr.Violations[2].Path)
}

func TestParseReplaceRejectsDuplicateIDs(t *testing.T) {
	_, err := ParseBytes([]byte(`{
		"type": "replace",
		"formDefinition": {
			"fields": [
				{"id": "name", "type": "text", "label": "Name", "required": true, "order": 0},
				{"id": "name", "type": "text", "label": "Also Name", "required": false, "order": 1}
			]
		}
	}`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Contains(t, schemaErr.Violations[0].Message, "duplicate")
}

func TestParseReplaceRequiresMandatoryKeys(t *testing.T) {
	// "required" and "order" are mandatory even though their zero values
	// are valid; null does not count as present.
	_, err := ParseBytes([]byte(`{
		"type": "replace",
		"formDefinition": {
			"fields": [
				{"id": "name", "type": "text", "label": "Name", "required": null, "order": 0}
			]
		}
	}`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.NotEmpty(t, schemaErr.Violations)
	assert.Equal(t, "/formDefinition/fields/0/required", schemaErr.Violations[0].Path)
}

func TestReplaceRoundTrip(t *testing.T) {
	// Any definition that passes save-time validation must survive being
	// serialized into a replace payload and re-parsed, unchanged.
	rows := 4
	min := 0.0
	tests := []struct {
		name string
		def  forms.FormDefinition
	}{
		{name: "empty definition", def: forms.FormDefinition{}},
		{
			name: "fields with optional constraints",
			def: forms.FormDefinition{Fields: []forms.FormField{
				{ID: "name", Type: forms.FieldTypeText, Label: "Name", Required: true, Order: 0},
				{ID: "age", Type: forms.FieldTypeNumber, Label: "Age", Order: 1, Min: &min},
				{ID: "bio", Type: forms.FieldTypeTextarea, Label: "Bio", Order: 2, Rows: &rows},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Empty(t, forms.Validate(tt.def))

			raw, err := json.Marshal(map[string]any{
				"type":           "replace",
				"formDefinition": tt.def,
			})
			require.NoError(t, err)

			resp, err := ParseBytes(raw)
			require.NoError(t, err)
			require.NotNil(t, resp.FormDefinition)
			assert.True(t, resp.FormDefinition.Equal(tt.def))
			assert.Empty(t, forms.Validate(*resp.FormDefinition))
		})
	}
}

func TestParseReplaceAcceptsUnknownAttributes(t *testing.T) {
	// Unrecognized attributes are carried by the model sometimes; they are
	// ignored rather than rejected.
	resp, err := ParseBytes([]byte(`{
		"type": "replace",
		"formDefinition": {
			"fields": [
				{"id": "name", "type": "text", "label": "Name", "required": true, "order": 0, "autofocus": true}
			]
		}
	}`))
	require.NoError(t, err)
	require.Len(t, resp.FormDefinition.Fields, 1)
}
