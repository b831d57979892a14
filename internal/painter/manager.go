package painter

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Recorder observes session lifecycle. Implementations must not block.
type Recorder interface {
	SessionCreated(id string)
	SessionProcessed(st State)
	SessionDeleted(id string)
}

// Manager owns the sessions of all clients. Each session has its own
// canvas, so clients never share drawing state.
type Manager struct {
	opts     Options
	recorder Recorder
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a manager that builds sessions from opts.
// rec may be nil.
func NewManager(opts Options, rec Recorder) *Manager {
	return &Manager{
		opts:     opts,
		recorder: rec,
		sessions: make(map[string]*Session),
	}
}

// SetDefaults changes the color and thickness given to new sessions.
// Existing sessions keep their state.
func (m *Manager) SetDefaults(color string, thickness int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if color != "" {
		m.opts.Color = color
	}
	if thickness > 0 {
		m.opts.Thickness = thickness
	}
}

// Defaults returns the color and thickness given to new sessions.
func (m *Manager) Defaults() (string, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	thickness := m.opts.Thickness
	if thickness == 0 {
		thickness = DefaultThickness
	}
	return m.opts.Color, thickness
}

// Create starts a new session with a random id.
func (m *Manager) Create() (*Session, error) {
	return m.CreateWithID(uuid.New().String())
}

// CreateWithID starts a session with the given id. An existing session with
// that id is returned unchanged.
func (m *Manager) CreateWithID(id string) (*Session, error) {
	s, _, err := m.getOrCreate(id)
	return s, err
}

// GetOrCreate returns the session for id, creating it when id is empty or
// unknown. The boolean reports whether a session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool, error) {
	if id == "" {
		id = uuid.New().String()
	}
	return m.getOrCreate(id)
}

func (m *Manager) getOrCreate(id string) (*Session, bool, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, false, nil
	}

	s, err := NewSession(id, m.opts)
	if err != nil {
		m.mu.Unlock()
		return nil, false, err
	}
	if m.recorder != nil {
		s.onFrame = m.recorder.SessionProcessed
	}
	m.sessions[id] = s
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.SessionCreated(id)
	}
	return s, true, nil
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns all sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].createdAt.Equal(sessions[j].createdAt) {
			return sessions[i].id < sessions[j].id
		}
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	return sessions
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if m.recorder != nil {
		m.recorder.SessionDeleted(id)
	}
	return s.Close()
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
