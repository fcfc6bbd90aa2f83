package live

import (
	"sort"
	"sync"
)

// Registry maps session ids to their open connections.
//
// The global lock guards only the session map. Each session entry has its own
// lock, and an entry emptied by Remove is marked dead and pruned; an Add that
// races with the prune retries on a fresh entry. Lock order is entry, then
// global.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	conns map[string]*Connection
	dead  bool

	// publish serializes fan-out so every connection sees publish order.
	publish sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

func (r *Registry) lookup(sessionID string) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

func (r *Registry) lookupOrCreate(sessionID string) *session {
	if s := r.lookup(sessionID); s != nil {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{conns: make(map[string]*Connection)}
		r.sessions[sessionID] = s
	}
	return s
}

// Add registers conn under sessionID.
func (r *Registry) Add(sessionID string, conn *Connection) {
	for {
		s := r.lookupOrCreate(sessionID)
		s.mu.Lock()
		if s.dead {
			s.mu.Unlock()
			continue
		}
		s.conns[conn.ID()] = conn
		s.mu.Unlock()
		return
	}
}

// Remove deregisters a connection and prunes the session once empty.
// It reports whether the connection was registered.
func (r *Registry) Remove(sessionID, connID string) bool {
	s := r.lookup(sessionID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[connID]; !ok {
		return false
	}
	delete(s.conns, connID)
	if len(s.conns) == 0 {
		s.dead = true
		r.mu.Lock()
		if r.sessions[sessionID] == s {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
	}
	return true
}

// Count returns the number of connections of a session.
func (r *Registry) Count(sessionID string) int {
	s := r.lookup(sessionID)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Sessions lists sessions with at least one connection, sorted.
func (r *Registry) Sessions() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Snapshot copies the connections of a session at call time.
func (r *Registry) Snapshot(sessionID string) []*Connection {
	s := r.lookup(sessionID)
	if s == nil {
		return nil
	}
	return s.snapshot()
}

func (s *session) snapshot() []*Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}
