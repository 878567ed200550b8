// Package store persists form definitions and applies approved editing
// diffs. The contract matters more than the backend: an approve commit is
// atomic, so a partially applied change is never observable.
package store

import (
	"errors"

	"github.com/formdeck/formdeck/pkg/forms"
)

// ErrNotFound is returned when the requested form does not exist.
var ErrNotFound = errors.New("form not found")

// FormRecord is a form's full persisted state.
type FormRecord struct {
	ID         string               `json:"id"`
	Meta       forms.Metadata       `json:"meta"`
	Definition forms.FormDefinition `json:"definition"`
}
