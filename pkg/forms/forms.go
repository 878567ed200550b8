// Package forms defines the canonical form definition model: an ordered
// list of typed fields with per-type constraints, plus the validation and
// order-normalization rules everything else in the system relies on.
package forms

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FieldType enumerates the closed set of supported field kinds.
// Unrecognized values are rejected, never coerced.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTextarea FieldType = "textarea"
)

// Valid reports whether t is one of the recognized field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeTextarea:
		return true
	}
	return false
}

// PlaceholderLabel is the label the editor assigns to a freshly created
// field. A field still carrying it is treated as not-yet-named and fails
// save-time validation.
const PlaceholderLabel = "New Field"

// FormField is a single entry in a form definition. The constraint
// attributes are pointers so that "absent" and "zero" stay distinct on the
// wire. Attributes that are not meaningful for the field's current type are
// carried but have no effect.
type FormField struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required"`
	Order       int       `json:"order"`
	Placeholder *string   `json:"placeholder,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Rows        *int      `json:"rows,omitempty"`
}

// FormDefinition is the complete structure of a form, independent of any
// submitted values.
type FormDefinition struct {
	Fields []FormField `json:"fields"`
}

// MarshalJSON serializes a nil Fields slice as an empty array. The wire
// contract is {"fields": [...]}; a JSON null here would break patch
// operations against an empty form and every consumer expecting an array.
func (d FormDefinition) MarshalJSON() ([]byte, error) {
	type plain FormDefinition
	p := plain(d)
	if p.Fields == nil {
		p.Fields = []FormField{}
	}
	return json.Marshal(p)
}

// Metadata carries the form-level attributes persisted alongside the field
// list on approve.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Published   bool   `json:"published"`
}

// ValidationError describes a single violated rule. Validation never stops
// at the first problem; callers receive the full list.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateField checks one field against the schema rules shared by the
// response validator and the patch engine's post-apply check. path is the
// JSON-pointer-ish prefix used in reported violations.
func ValidateField(f FormField, path string) []ValidationError {
	var errs []ValidationError
	if f.ID == "" {
		errs = append(errs, ValidationError{Path: path + "/id", Message: "id must be a non-empty string"})
	}
	if !f.Type.Valid() {
		errs = append(errs, ValidationError{Path: path + "/type", Message: fmt.Sprintf("unknown field type %q (allowed: text, number, textarea)", f.Type)})
	}
	if f.Label == "" {
		errs = append(errs, ValidationError{Path: path + "/label", Message: "label must be a non-empty string"})
	}
	if f.Order < 0 {
		errs = append(errs, ValidationError{Path: path + "/order", Message: "order must be a non-negative integer"})
	}
	if f.MinLength != nil && *f.MinLength <= 0 {
		errs = append(errs, ValidationError{Path: path + "/minLength", Message: "minLength must be a positive integer"})
	}
	if f.MaxLength != nil && *f.MaxLength <= 0 {
		errs = append(errs, ValidationError{Path: path + "/maxLength", Message: "maxLength must be a positive integer"})
	}
	if f.Rows != nil && *f.Rows <= 0 {
		errs = append(errs, ValidationError{Path: path + "/rows", Message: "rows must be a positive integer"})
	}
	return errs
}

// ValidateDefinition checks every field plus id uniqueness. This is the
// check the patch engine runs after a successful apply and the response
// validator runs on a "replace" payload. Order density is deliberately not
// required here: the orchestrator renormalizes order after every change.
func ValidateDefinition(d FormDefinition) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(d.Fields))
	for i, f := range d.Fields {
		path := fmt.Sprintf("/fields/%d", i)
		errs = append(errs, ValidateField(f, path)...)
		if f.ID != "" {
			if seen[f.ID] {
				errs = append(errs, ValidationError{Path: path + "/id", Message: fmt.Sprintf("duplicate field id %q", f.ID)})
			}
			seen[f.ID] = true
		}
	}
	return errs
}

// Validate runs the full save-time check: the definition rules, the
// committed-label rule, and order density. The input is not mutated.
func Validate(d FormDefinition) []ValidationError {
	errs := ValidateDefinition(d)
	for i, f := range d.Fields {
		if f.Label == PlaceholderLabel {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("/fields/%d/label", i),
				Message: fmt.Sprintf("field %q has not been named yet", f.ID),
			})
		}
	}
	orders := make([]int, len(d.Fields))
	for i, f := range d.Fields {
		orders[i] = f.Order
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i {
			errs = append(errs, ValidationError{
				Path:    "/fields",
				Message: fmt.Sprintf("order values are not a dense 0..%d sequence", len(d.Fields)-1),
			})
			break
		}
	}
	return errs
}

// NormalizeOrder re-assigns order values to 0..n-1 following the fields'
// current relative order: stable sort by existing order, ties broken by
// original sequence. The input slice is not modified.
func NormalizeOrder(fields []FormField) []FormField {
	out := make([]FormField, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Clone returns a deep copy of the definition, including the optional
// constraint pointers.
func (d FormDefinition) Clone() FormDefinition {
	out := FormDefinition{Fields: make([]FormField, len(d.Fields))}
	for i, f := range d.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}

// Clone returns a deep copy of a single field.
func (f FormField) Clone() FormField {
	c := f
	c.Placeholder = cloneStr(f.Placeholder)
	c.MinLength = cloneInt(f.MinLength)
	c.MaxLength = cloneInt(f.MaxLength)
	c.Min = cloneFloat(f.Min)
	c.Max = cloneFloat(f.Max)
	c.Step = cloneFloat(f.Step)
	c.Rows = cloneInt(f.Rows)
	return c
}

// Equal reports deep equality of two definitions, comparing optional
// attributes by value.
func (d FormDefinition) Equal(other FormDefinition) bool {
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i := range d.Fields {
		if !d.Fields[i].Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}

// Equal reports deep equality of two fields.
func (f FormField) Equal(other FormField) bool {
	return f.ID == other.ID &&
		f.Type == other.Type &&
		f.Label == other.Label &&
		f.Required == other.Required &&
		f.Order == other.Order &&
		eqStr(f.Placeholder, other.Placeholder) &&
		eqInt(f.MinLength, other.MinLength) &&
		eqInt(f.MaxLength, other.MaxLength) &&
		eqFloat(f.Min, other.Min) &&
		eqFloat(f.Max, other.Max) &&
		eqFloat(f.Step, other.Step) &&
		eqInt(f.Rows, other.Rows)
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func eqStr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func eqInt(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func eqFloat(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
