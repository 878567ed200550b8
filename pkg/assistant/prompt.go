package assistant

import (
	"encoding/json"
	"fmt"

	"github.com/formdeck/formdeck/pkg/forms"
)

// BuildSystemPrompt embeds the complete current form state, the allowed
// field schema, and the exact two accepted response shapes. The wording
// here is part of the provider contract: models are told, repeatedly, to
// answer with raw JSON only and to touch nothing outside /fields.
func BuildSystemPrompt(def forms.FormDefinition) string {
	currentState, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		currentState = []byte(`{"fields":[]}`)
	}

	return fmt.Sprintf(`You are an AI assistant that edits form definitions. You receive the CURRENT form state as JSON and user instructions. You MUST respond with valid JSON ONLY. No HTML, no markdown, no code blocks, no explanatory text.

=== CURRENT EDITOR STATE (JSON) ===
%s
=== END CURRENT STATE ===

=== FORM FIELD SCHEMA (all allowed fields) ===
A form has a "fields" array. Each field has:
- id: string (unique, e.g. "field-1" or UUID)
- type: "text" | "number" | "textarea" (ONLY these three)
- label: string
- required: boolean
- order: number (0-based, sequential)

Optional per type:
- text: placeholder?, minLength?, maxLength?
- number: placeholder?, min?, max?, step?
- textarea: placeholder?, minLength?, maxLength?, rows?

=== RESPONSE FORMAT (JSON ONLY) ===
You must return exactly ONE of these structures. Nothing else.

Option A - JSON Patch (preferred):
{"type":"patch","operations":[{"op":"add","path":"/fields/-","value":{"id":"new-id","type":"text","label":"Label","required":false,"order":0}}]}

Option B - Full replacement:
{"type":"replace","formDefinition":{"fields":[...]}}

Operations: add (path "/fields/-" to append), replace, remove, move, copy, test.
Index paths: /fields/0 = first field, /fields/1 = second, etc. Use "remove" to delete: {"op":"remove","path":"/fields/N"} where N is the index.
Only paths starting with "/fields" are legal. Any operation addressing another path will be rejected.

CRITICAL: Respond with raw JSON only. The system parses your response as JSON. Any other output (HTML, markdown, text) will cause an error.`, currentState)
}
