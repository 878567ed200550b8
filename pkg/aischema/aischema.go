// Package aischema validates the JSON a language model returns before any
// of it is trusted. Exactly two response shapes are accepted: a "patch"
// carrying JSON Patch operations, or a "replace" carrying a complete form
// definition. Anything else is reported with the full list of violated
// rules. Malformed input is an expected case here, never a panic.
package aischema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/jsonpatch"
)

// ResponseType discriminates the two accepted shapes.
type ResponseType string

const (
	TypePatch   ResponseType = "patch"
	TypeReplace ResponseType = "replace"
)

// Response is a validated model response. Exactly one of Operations or
// FormDefinition is populated, according to Type. A successfully parsed
// Response is safe to hand to the patch engine or to adopt as the new
// definition without further defensive checks.
type Response struct {
	Type           ResponseType
	Operations     []jsonpatch.Operation
	FormDefinition *forms.FormDefinition
}

// Violation is a single failed rule, with a JSON-pointer-ish location.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SchemaError carries every rule the response violated, not just the
// first, so the whole picture lands in logs and error messages.
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Path, v.Message)
	}
	return "invalid AI response: " + strings.Join(msgs, "; ")
}

// Parse validates an already-decoded JSON value against the response
// union. The returned error, when non-nil, is always a *SchemaError.
func Parse(v any) (*Response, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "", Message: "response must be a JSON object"}}}
	}

	rawType, ok := obj["type"]
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/type", Message: `missing "type" discriminator`}}}
	}
	typeStr, ok := rawType.(string)
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/type", Message: `"type" must be a string`}}}
	}

	switch ResponseType(typeStr) {
	case TypePatch:
		return parsePatch(obj)
	case TypeReplace:
		return parseReplace(obj)
	default:
		return nil, &SchemaError{Violations: []Violation{{
			Path:    "/type",
			Message: fmt.Sprintf(`unknown response type %q (expected "patch" or "replace")`, typeStr),
		}}}
	}
}

// ParseBytes decodes raw JSON and validates it. A decode failure is
// reported as a schema violation like any other.
func ParseBytes(raw []byte) (*Response, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &SchemaError{Violations: []Violation{{Path: "", Message: fmt.Sprintf("not valid JSON: %v", err)}}}
	}
	return Parse(v)
}

func parsePatch(obj map[string]any) (*Response, error) {
	var violations []Violation

	rawOps, ok := obj["operations"]
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/operations", Message: `missing "operations" array`}}}
	}
	list, ok := rawOps.([]any)
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/operations", Message: `"operations" must be an array`}}}
	}
	if len(list) == 0 {
		return nil, &SchemaError{Violations: []Violation{{Path: "/operations", Message: "operations must not be empty"}}}
	}

	ops := make([]jsonpatch.Operation, 0, len(list))
	for i, item := range list {
		path := fmt.Sprintf("/operations/%d", i)
		if _, ok := item.(map[string]any); !ok {
			violations = append(violations, Violation{Path: path, Message: "operation must be an object"})
			continue
		}
		raw, err := json.Marshal(item)
		if err != nil {
			violations = append(violations, Violation{Path: path, Message: err.Error()})
			continue
		}
		var op jsonpatch.Operation
		if err := json.Unmarshal(raw, &op); err != nil {
			violations = append(violations, Violation{Path: path, Message: err.Error()})
			continue
		}
		if err := op.Validate(); err != nil {
			violations = append(violations, Violation{Path: path, Message: err.Error()})
			continue
		}
		ops = append(ops, op)
	}

	if len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}
	return &Response{Type: TypePatch, Operations: ops}, nil
}

// mandatoryFieldKeys must be present on every field in a replace payload.
// Optional constraint attributes may be absent or null.
var mandatoryFieldKeys = []string{"id", "type", "label", "required", "order"}

func parseReplace(obj map[string]any) (*Response, error) {
	rawDef, ok := obj["formDefinition"]
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/formDefinition", Message: `missing "formDefinition" object`}}}
	}
	defObj, ok := rawDef.(map[string]any)
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/formDefinition", Message: `"formDefinition" must be an object`}}}
	}
	rawFields, ok := defObj["fields"]
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/formDefinition/fields", Message: `missing "fields" array`}}}
	}
	list, ok := rawFields.([]any)
	if !ok {
		return nil, &SchemaError{Violations: []Violation{{Path: "/formDefinition/fields", Message: `"fields" must be an array`}}}
	}

	var violations []Violation
	def := forms.FormDefinition{Fields: make([]forms.FormField, 0, len(list))}
	for i, item := range list {
		path := fmt.Sprintf("/formDefinition/fields/%d", i)
		fieldObj, ok := item.(map[string]any)
		if !ok {
			violations = append(violations, Violation{Path: path, Message: "field must be an object"})
			continue
		}
		for _, key := range mandatoryFieldKeys {
			if v, present := fieldObj[key]; !present || v == nil {
				violations = append(violations, Violation{Path: path + "/" + key, Message: fmt.Sprintf("missing required attribute %q", key)})
			}
		}
		raw, err := json.Marshal(fieldObj)
		if err != nil {
			violations = append(violations, Violation{Path: path, Message: err.Error()})
			continue
		}
		var field forms.FormField
		if err := json.Unmarshal(raw, &field); err != nil {
			violations = append(violations, Violation{Path: path, Message: err.Error()})
			continue
		}
		def.Fields = append(def.Fields, field)
	}

	for _, v := range forms.ValidateDefinition(def) {
		violations = append(violations, Violation{Path: "/formDefinition" + v.Path, Message: v.Message})
	}

	if len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}
	return &Response{Type: TypeReplace, FormDefinition: &def}, nil
}
