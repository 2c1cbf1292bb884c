package call

import (
	"log"
	"sync"
)

// Registry tracks the active sessions keyed by stream SID. It replaces the
// ambient per-process session map: entries are created on the transport's
// start event and removed on stop or disconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a started session under its stream SID.
func (r *Registry) Add(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[sess.StreamSID]; ok && old != sess {
		log.Printf("[Registry] Replacing session for stream %s", sess.StreamSID)
	}
	r.sessions[sess.StreamSID] = sess
}

// Get returns the session for a stream SID, if any.
func (r *Registry) Get(streamSID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[streamSID]
	return sess, ok
}

// Remove drops a session from the registry.
func (r *Registry) Remove(streamSID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, streamSID)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
