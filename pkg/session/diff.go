package session

import (
	"encoding/json"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/formdeck/formdeck/pkg/forms"
)

// FieldUpdate pairs a field id with its new state.
type FieldUpdate struct {
	ID    string          `json:"id"`
	Field forms.FormField `json:"field"`
}

// Diff describes an approved change the way the persistence layer
// consumes it: fields to insert, fields to rewrite, ids to delete.
type Diff struct {
	Created []forms.FormField `json:"created"`
	Updated []FieldUpdate     `json:"updated"`
	Deleted []string          `json:"deleted"`
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

// Compute diffs two definitions by field id, in each side's field order.
func Compute(baseline, current forms.FormDefinition) Diff {
	var d Diff
	base := make(map[string]forms.FormField, len(baseline.Fields))
	for _, f := range baseline.Fields {
		base[f.ID] = f
	}
	seen := make(map[string]bool, len(current.Fields))
	for _, f := range current.Fields {
		seen[f.ID] = true
		old, ok := base[f.ID]
		if !ok {
			d.Created = append(d.Created, f.Clone())
			continue
		}
		if !old.Equal(f) {
			d.Updated = append(d.Updated, FieldUpdate{ID: f.ID, Field: f.Clone()})
		}
	}
	for _, f := range baseline.Fields {
		if !seen[f.ID] {
			d.Deleted = append(d.Deleted, f.ID)
		}
	}
	return d
}

// RenderPreview produces a line diff of the two definitions' JSON, with
// -/+ markers, for showing the user what a pending change does.
func RenderPreview(before, after forms.FormDefinition) string {
	beforeJSON := definitionJSON(before)
	afterJSON := definitionJSON(after)

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(beforeJSON, afterJSON)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func definitionJSON(def forms.FormDefinition) string {
	raw, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return ""
	}
	return string(raw) + "\n"
}
