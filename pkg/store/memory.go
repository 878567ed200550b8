package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/session"
)

// Memory is an in-process store used in tests and single-node setups
// without a database. It implements session.Store.
type Memory struct {
	mu   sync.Mutex
	byID map[string]*FormRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*FormRecord)}
}

// Seed inserts or replaces a record wholesale.
func (m *Memory) Seed(rec FormRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := rec
	clone.Definition = rec.Definition.Clone()
	m.byID[rec.ID] = &clone
}

// Load returns the persisted definition and metadata for formID.
func (m *Memory) Load(_ context.Context, formID string) (forms.FormDefinition, forms.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[formID]
	if !ok {
		return forms.FormDefinition{}, forms.Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, formID)
	}
	return rec.Definition.Clone(), rec.Meta, nil
}

// ApplyDiff applies the whole diff and metadata update under one lock,
// mirroring the all-or-nothing contract of the SQL implementation.
func (m *Memory) ApplyDiff(_ context.Context, formID string, diff session.Diff, meta forms.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[formID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, formID)
	}

	fields := rec.Definition.Clone().Fields

	deleted := make(map[string]bool, len(diff.Deleted))
	for _, id := range diff.Deleted {
		deleted[id] = true
	}
	kept := fields[:0]
	for _, f := range fields {
		if !deleted[f.ID] {
			kept = append(kept, f)
		}
	}
	fields = kept

	for _, u := range diff.Updated {
		found := false
		for i := range fields {
			if fields[i].ID == u.ID {
				fields[i] = u.Field.Clone()
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("cannot update unknown field %q in form %s", u.ID, formID)
		}
	}

	for _, f := range diff.Created {
		fields = append(fields, f.Clone())
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })
	rec.Definition = forms.FormDefinition{Fields: fields}
	rec.Meta = meta
	return nil
}
