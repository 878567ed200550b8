package session

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Manager hands out one session per form, loading state from the store on
// first access. The registry is LRU-bounded; an evicted session simply
// gets reloaded from persistence next time, losing only unsaved local
// edits of an abandoned session.
type Manager struct {
	cache *lru.Cache[string, *EditSession]
	store Store
}

// NewManager builds a manager over the given store, retaining at most
// maxSessions concurrently edited forms.
func NewManager(store Store, maxSessions int) (*Manager, error) {
	if maxSessions <= 0 {
		maxSessions = 256
	}
	cache, err := lru.New[string, *EditSession](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Manager{cache: cache, store: store}, nil
}

// Get returns the session for formID, creating it from persisted state if
// needed.
func (m *Manager) Get(ctx context.Context, formID string) (*EditSession, error) {
	if sess, ok := m.cache.Get(formID); ok {
		return sess, nil
	}
	def, meta, err := m.store.Load(ctx, formID)
	if err != nil {
		return nil, err
	}
	sess := New(formID, def, meta)
	// A racing Get may have created the session first; keep the winner.
	if existing, ok, _ := m.cache.PeekOrAdd(formID, sess); ok {
		return existing, nil
	}
	return sess, nil
}

// Drop discards a session's local state.
func (m *Manager) Drop(formID string) {
	m.cache.Remove(formID)
}

// Store exposes the persistence collaborator sessions approve into.
func (m *Manager) Store() Store { return m.store }
