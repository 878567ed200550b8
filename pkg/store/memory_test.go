package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/session"
)

func seeded() *Memory {
	mem := NewMemory()
	mem.Seed(FormRecord{
		ID:   "f1",
		Meta: forms.Metadata{Title: "Contact"},
		Definition: forms.FormDefinition{Fields: []forms.FormField{
			{ID: "name", Type: forms.FieldTypeText, Label: "Name", Order: 0},
			{ID: "message", Type: forms.FieldTypeTextarea, Label: "Message", Order: 1},
		}},
	})
	return mem
}

func TestMemoryLoadUnknown(t *testing.T) {
	_, _, err := NewMemory().Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	mem := seeded()

	def, _, err := mem.Load(ctx, "f1")
	require.NoError(t, err)
	def.Fields[0].Label = "Mutated"

	again, _, err := mem.Load(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Name", again.Fields[0].Label)
}

func TestMemoryApplyDiff(t *testing.T) {
	ctx := context.Background()
	mem := seeded()

	diff := session.Diff{
		Created: []forms.FormField{
			{ID: "email", Type: forms.FieldTypeText, Label: "Email", Order: 1},
		},
		Updated: []session.FieldUpdate{
			{ID: "message", Field: forms.FormField{ID: "message", Type: forms.FieldTypeTextarea, Label: "Your Message", Order: 2}},
		},
		Deleted: nil,
	}
	meta := forms.Metadata{Title: "Contact Us", Published: true}
	require.NoError(t, mem.ApplyDiff(ctx, "f1", diff, meta))

	def, gotMeta, err := mem.Load(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)

	// Fields come back ordered by position.
	require.Len(t, def.Fields, 3)
	assert.Equal(t, "name", def.Fields[0].ID)
	assert.Equal(t, "email", def.Fields[1].ID)
	assert.Equal(t, "message", def.Fields[2].ID)
	assert.Equal(t, "Your Message", def.Fields[2].Label)
}

func TestMemoryApplyDiffDelete(t *testing.T) {
	ctx := context.Background()
	mem := seeded()

	diff := session.Diff{Deleted: []string{"message"}}
	require.NoError(t, mem.ApplyDiff(ctx, "f1", diff, forms.Metadata{Title: "Contact"}))

	def, _, err := mem.Load(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, def.Fields, 1)
	assert.Equal(t, "name", def.Fields[0].ID)
}

func TestMemoryApplyDiffUnknownField(t *testing.T) {
	mem := seeded()
	diff := session.Diff{
		Updated: []session.FieldUpdate{{ID: "ghost", Field: forms.FormField{ID: "ghost"}}},
	}
	err := mem.ApplyDiff(context.Background(), "f1", diff, forms.Metadata{})
	assert.Error(t, err)
}

func TestMemoryApplyDiffUnknownForm(t *testing.T) {
	err := NewMemory().ApplyDiff(context.Background(), "nope", session.Diff{}, forms.Metadata{})
	assert.ErrorIs(t, err, ErrNotFound)
}
