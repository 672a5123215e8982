// Package session provides an in-memory session manager. Sessions collect
// notes keyed by an opaque id (typically an execution id); the orchestrator
// leaves a summary note per run. Suitable for development, testing, and
// single-instance deployments. Data is lost on restart.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Note is one entry in a session.
type Note struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager stores session notes in memory behind an RWMutex.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string][]Note
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string][]Note)}
}

// Append adds a note to a session, filling in id and timestamp when absent.
func (m *Manager) Append(_ context.Context, sessionID string, note Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.SessionID == "" {
		note.SessionID = sessionID
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	m.sessions[sessionID] = append(m.sessions[sessionID], note)
	return nil
}

// Notes retrieves all notes for a session in append order.
func (m *Manager) Notes(_ context.Context, sessionID string) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Note, len(m.sessions[sessionID]))
	copy(out, m.sessions[sessionID])
	return out, nil
}

// Recent retrieves the last limit notes for a session.
func (m *Manager) Recent(_ context.Context, sessionID string, limit int) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sessions[sessionID]
	if len(all) <= limit {
		out := make([]Note, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]Note, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

// Clear removes all notes for a session.
func (m *Manager) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Sessions lists known session ids, sorted.
func (m *Manager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
