// Package session holds the lobby-local, in-memory table of authenticated
// connections. A Session never outlives the process: it is created on
// login and destroyed on logout or connection loss.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/marnhollow/arcadehost/internal/models"
)

// Manager is the lobby's ACTIVE_SESSIONS table, made an explicit
// constructed/torn-down component instead of a package-level global (spec
// design note: "model each as a bounded component with an explicit
// lifecycle ... do not expose them as ambient globals").
type Manager struct {
	mu       sync.RWMutex
	byID     map[string]models.Session
	byUserID map[string]string // userID -> newest sessionID, backs IsOnline
}

// NewManager constructs an empty session table.
func NewManager() *Manager {
	return &Manager{
		byID:     make(map[string]models.Session),
		byUserID: make(map[string]string),
	}
}

// Create mints a new session for userID/name and registers it. Callers are
// responsible for enforcing the store-side `online` gate before calling
// this: Create never rejects a second session for the same user. It points
// the user's mapping at the newest session, and an older session for that
// user stays valid for Get until it is deleted.
func (m *Manager) Create(userID, name string) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.Session{SessionID: uuid.NewString(), UserID: userID, Name: name}
	m.byID[s.SessionID] = s
	m.byUserID[userID] = s.SessionID
	return s
}

// Get looks up a session by id.
func (m *Manager) Get(sessionID string) (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[sessionID]
	return s, ok
}

// IsOnline reports whether userID currently holds a live session.
func (m *Manager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byUserID[userID]
	return ok
}

// Delete removes a session, e.g. on explicit logout or connection loss.
// Idempotent: deleting an unknown/already-deleted session is a no-op.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[sessionID]
	if !ok {
		return
	}
	delete(m.byID, sessionID)
	if m.byUserID[s.UserID] == sessionID {
		delete(m.byUserID, s.UserID)
	}
}
