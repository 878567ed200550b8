// Package session implements the two-stage commit protocol around a
// form's editing buffer. An AI result is staged locally first; durable
// persistence happens only on explicit approval, with a revert path back
// to the pre-change buffer. Each session also carries a turn counter so a
// late-arriving provider result can never clobber a buffer that has moved
// on.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/formdeck/formdeck/pkg/forms"
)

// State names the commit-protocol state of a session.
type State string

const (
	// StateClean means the buffer has no AI-proposed change pending.
	// It may still differ from the persisted baseline via manual edits.
	StateClean State = "clean"
	// StateAIProposed means the buffer holds an AI result awaiting
	// explicit approval or revert; the pre-change snapshot is retained.
	StateAIProposed State = "ai_proposed"
)

var (
	// ErrEditPending rejects a new AI turn or manual edit while a
	// proposed change awaits approval. The caller must approve or
	// revert first; snapshots are never silently overwritten.
	ErrEditPending = errors.New("an AI-proposed change is pending approval")
	// ErrStaleResult rejects a result produced for a turn the session
	// has since moved past.
	ErrStaleResult = errors.New("result belongs to a superseded turn")
	// ErrNoPendingEdit rejects approve/revert-specific operations when
	// nothing is pending.
	ErrNoPendingEdit = errors.New("no AI-proposed change is pending")
)

// ValidationFailedError reports that the buffer cannot be persisted.
type ValidationFailedError struct {
	Violations []forms.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return "form is not ready to save: " + strings.Join(msgs, "; ")
}

// Persister applies an approved change atomically: all field creates,
// updates and deletes plus the metadata update land together or not at
// all.
type Persister interface {
	ApplyDiff(ctx context.Context, formID string, diff Diff, meta forms.Metadata) error
}

// Loader fetches a form's persisted state.
type Loader interface {
	Load(ctx context.Context, formID string) (forms.FormDefinition, forms.Metadata, error)
}

// Store is what a session manager needs from persistence.
type Store interface {
	Loader
	Persister
}

// EditSession is the per-form editing state. All methods are safe for
// concurrent use, though the protocol assumes one instruction in flight
// per session at a time.
type EditSession struct {
	mu           sync.Mutex
	formID       string
	baseline     forms.FormDefinition
	baselineMeta forms.Metadata
	buffer       forms.FormDefinition
	meta         forms.Metadata
	snapshot     *forms.FormDefinition
	state        State
	turn         uint64
}

// New starts a session over the last-persisted state.
func New(formID string, def forms.FormDefinition, meta forms.Metadata) *EditSession {
	return &EditSession{
		formID:       formID,
		baseline:     def.Clone(),
		baselineMeta: meta,
		buffer:       def.Clone(),
		meta:         meta,
		state:        StateClean,
	}
}

// FormID returns the form this session edits.
func (s *EditSession) FormID() string { return s.formID }

// State returns the current commit-protocol state.
func (s *EditSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffer returns a copy of the current editing buffer.
func (s *EditSession) Buffer() forms.FormDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Clone()
}

// Metadata returns the buffered form metadata.
func (s *EditSession) Metadata() forms.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Dirty reports whether the buffer or metadata differ from the
// last-persisted baseline. This drives the unsaved-changes guard and is
// independent of the AI snapshot.
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.buffer.Equal(s.baseline) || s.meta != s.baselineMeta
}

// BeginTurn opens a new AI turn and returns the turn id plus a snapshot
// of the buffer to hand to the orchestrator. While a proposed change is
// pending, new turns are refused.
func (s *EditSession) BeginTurn() (uint64, forms.FormDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAIProposed {
		return 0, forms.FormDefinition{}, ErrEditPending
	}
	s.turn++
	return s.turn, s.buffer.Clone(), nil
}

// StageResult applies an orchestrator result to the local buffer,
// retaining the pre-change snapshot. The turn id must match the one
// BeginTurn issued; anything else means the session moved on while the
// provider call was in flight, and the result is dropped.
func (s *EditSession) StageResult(turn uint64, def forms.FormDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAIProposed {
		return ErrEditPending
	}
	if turn != s.turn {
		return fmt.Errorf("%w: got turn %d, session is at %d", ErrStaleResult, turn, s.turn)
	}
	snapshot := s.buffer.Clone()
	s.snapshot = &snapshot
	s.buffer = def.Clone()
	s.state = StateAIProposed
	return nil
}

// SetBuffer records a manual edit. Refused while an AI change is pending;
// bumps the turn so any in-flight AI result for the old buffer is dropped.
func (s *EditSession) SetBuffer(def forms.FormDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAIProposed {
		return ErrEditPending
	}
	s.buffer = def.Clone()
	s.turn++
	return nil
}

// SetMetadata records a manual metadata edit.
func (s *EditSession) SetMetadata(meta forms.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
}

// Approve persists the buffer as the new durable state and discards the
// snapshot. The buffer must pass full save-time validation; the store is
// expected to apply the diff transactionally.
func (s *EditSession) Approve(ctx context.Context, p Persister) (Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if violations := forms.Validate(s.buffer); len(violations) > 0 {
		return Diff{}, &ValidationFailedError{Violations: violations}
	}

	diff := Compute(s.baseline, s.buffer)
	// Approving with nothing changed is legal but writes nothing.
	if !diff.Empty() || s.meta != s.baselineMeta {
		if err := p.ApplyDiff(ctx, s.formID, diff, s.meta); err != nil {
			return Diff{}, err
		}
	}

	s.baseline = s.buffer.Clone()
	s.baselineMeta = s.meta
	s.snapshot = nil
	s.state = StateClean
	s.turn++
	return diff, nil
}

// Revert restores the buffer from the pre-change snapshot and discards
// it. Only valid while a change is pending.
func (s *EditSession) Revert() (forms.FormDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAIProposed || s.snapshot == nil {
		return forms.FormDefinition{}, ErrNoPendingEdit
	}
	s.buffer = s.snapshot.Clone()
	s.snapshot = nil
	s.state = StateClean
	s.turn++
	return s.buffer.Clone(), nil
}

// PendingPreview renders a unified view of the pending change, or false
// when nothing is pending.
func (s *EditSession) PendingPreview() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAIProposed || s.snapshot == nil {
		return "", false
	}
	return RenderPreview(*s.snapshot, s.buffer), true
}
