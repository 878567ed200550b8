package forms

import (
	"encoding/json"
	"testing"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func validField(id string, order int) FormField {
	return FormField{ID: id, Type: FieldTypeText, Label: "Label " + id, Order: order}
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		name       string
		field      FormField
		wantErrors int
	}{
		{
			name:       "valid text field",
			field:      FormField{ID: "f1", Type: FieldTypeText, Label: "Name", Order: 0},
			wantErrors: 0,
		},
		{
			name:       "valid field with constraints",
			field:      FormField{ID: "f2", Type: FieldTypeTextarea, Label: "Bio", Order: 1, Rows: intPtr(4), MaxLength: intPtr(500)},
			wantErrors: 0,
		},
		{
			name:       "empty id",
			field:      FormField{ID: "", Type: FieldTypeText, Label: "Name", Order: 0},
			wantErrors: 1,
		},
		{
			name:       "unknown type",
			field:      FormField{ID: "f1", Type: "dropdown", Label: "Choice", Order: 0},
			wantErrors: 1,
		},
		{
			name:       "empty label",
			field:      FormField{ID: "f1", Type: FieldTypeText, Label: "", Order: 0},
			wantErrors: 1,
		},
		{
			name:       "negative order",
			field:      FormField{ID: "f1", Type: FieldTypeText, Label: "Name", Order: -1},
			wantErrors: 1,
		},
		{
			name:       "zero minLength rejected",
			field:      FormField{ID: "f1", Type: FieldTypeText, Label: "Name", Order: 0, MinLength: intPtr(0)},
			wantErrors: 1,
		},
		{
			name:       "zero rows rejected",
			field:      FormField{ID: "f1", Type: FieldTypeTextarea, Label: "Bio", Order: 0, Rows: intPtr(0)},
			wantErrors: 1,
		},
		{
			name:       "multiple violations reported together",
			field:      FormField{ID: "", Type: "checkbox", Label: "", Order: -2},
			wantErrors: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateField(tt.field, "/fields/0")
			if len(errs) != tt.wantErrors {
				t.Errorf("ValidateField() returned %d errors, want %d: %v", len(errs), tt.wantErrors, errs)
			}
		})
	}
}

func TestValidateDefinitionDuplicateIDs(t *testing.T) {
	def := FormDefinition{Fields: []FormField{
		validField("email", 0),
		validField("email", 1),
	}}
	errs := ValidateDefinition(def)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one violation, got %v", errs)
	}
	if errs[0].Path != "/fields/1/id" {
		t.Errorf("duplicate reported at %q, want /fields/1/id", errs[0].Path)
	}
}

func TestValidateDefinitionAllowsSparseOrder(t *testing.T) {
	// Density is a save-time rule; mid-pipeline definitions may be sparse.
	def := FormDefinition{Fields: []FormField{
		validField("a", 0),
		validField("b", 5),
	}}
	if errs := ValidateDefinition(def); len(errs) != 0 {
		t.Errorf("expected no violations, got %v", errs)
	}
}

func TestValidateSaveTimeRules(t *testing.T) {
	tests := []struct {
		name       string
		def        FormDefinition
		wantErrors int
	}{
		{
			name: "valid dense form",
			def: FormDefinition{Fields: []FormField{
				validField("a", 0),
				validField("b", 1),
			}},
			wantErrors: 0,
		},
		{
			name:       "empty form is valid",
			def:        FormDefinition{},
			wantErrors: 0,
		},
		{
			name: "placeholder label blocks save",
			def: FormDefinition{Fields: []FormField{
				{ID: "a", Type: FieldTypeText, Label: PlaceholderLabel, Order: 0},
			}},
			wantErrors: 1,
		},
		{
			name: "sparse order blocks save",
			def: FormDefinition{Fields: []FormField{
				validField("a", 0),
				validField("b", 3),
			}},
			wantErrors: 1,
		},
		{
			name: "duplicate order blocks save",
			def: FormDefinition{Fields: []FormField{
				validField("a", 1),
				validField("b", 1),
			}},
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.def)
			if len(errs) != tt.wantErrors {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrors, errs)
			}
		})
	}
}

func TestNormalizeOrder(t *testing.T) {
	fields := []FormField{
		{ID: "c", Type: FieldTypeText, Label: "C", Order: 7},
		{ID: "a", Type: FieldTypeText, Label: "A", Order: 2},
		{ID: "b", Type: FieldTypeText, Label: "B", Order: 2},
	}

	out := NormalizeOrder(fields)

	wantIDs := []string{"a", "b", "c"}
	for i, id := range wantIDs {
		if out[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, out[i].ID, id)
		}
		if out[i].Order != i {
			t.Errorf("position %d: order %d, want %d", i, out[i].Order, i)
		}
	}

	// The input must stay untouched.
	if fields[0].Order != 7 || fields[1].Order != 2 || fields[2].Order != 2 {
		t.Errorf("NormalizeOrder mutated its input: %+v", fields)
	}
}

func TestMarshalNilFieldsAsEmptyArray(t *testing.T) {
	raw, err := json.Marshal(FormDefinition{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(raw) != `{"fields":[]}` {
		t.Errorf("Marshal() = %s, want {\"fields\":[]}", raw)
	}

	// Round trip stays an empty, valid definition.
	var def FormDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if errs := Validate(def); len(errs) != 0 {
		t.Errorf("Validate() after round trip = %v", errs)
	}
}

func TestCloneIsDeep(t *testing.T) {
	def := FormDefinition{Fields: []FormField{
		{ID: "a", Type: FieldTypeNumber, Label: "Age", Order: 0, Min: floatPtr(0), Max: floatPtr(120)},
	}}

	clone := def.Clone()
	*clone.Fields[0].Min = 18
	clone.Fields[0].Label = "Years"

	if *def.Fields[0].Min != 0 {
		t.Errorf("clone shares the Min pointer with the original")
	}
	if def.Fields[0].Label != "Age" {
		t.Errorf("clone shares field data with the original")
	}
}

func TestEqualComparesPointersByValue(t *testing.T) {
	a := FormField{ID: "a", Type: FieldTypeText, Label: "A", Order: 0, Placeholder: strPtr("hint")}
	b := FormField{ID: "a", Type: FieldTypeText, Label: "A", Order: 0, Placeholder: strPtr("hint")}
	if !a.Equal(b) {
		t.Errorf("fields with equal pointer values should be equal")
	}

	b.Placeholder = nil
	if a.Equal(b) {
		t.Errorf("present vs absent placeholder should not be equal")
	}
}
