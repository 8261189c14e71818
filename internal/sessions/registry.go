// Package sessions tracks operator websocket sessions and their identity.
package sessions

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/enmanuelbasulto/fop2-clone/internal/metrics"
)

// Sentinel errors for session lifecycle violations.
var (
	ErrAlreadyAuthenticated = errors.New("sessions: transport already authenticated")
	ErrUnknownTransport     = errors.New("sessions: unknown transport")
)

// Conn is the transport half of a session. Send is non-blocking and
// best-effort: it reports false when the message was dropped. Close pushes a
// close frame with the given code and tears the transport down.
type Conn interface {
	Send(msg any) bool
	Close(code int, reason string)
}

// Session is one operator connection. It starts unauthenticated and is
// populated by Authenticate.
type Session struct {
	ID            string
	TransportID   string
	Extension     string
	DisplayName   string
	RemoteAddr    string
	Authenticated bool

	conn Conn
}

// Send forwards a message to the session's transport, best-effort.
func (s *Session) Send(msg any) bool {
	return s.conn.Send(msg)
}

// Close closes the session's transport.
func (s *Session) Close(code int, reason string) {
	s.conn.Close(code, reason)
}

// Registry owns the live session set. Mutation and iteration are mutually
// exclusive per operation; broadcasts iterate a snapshot taken under the
// lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // by transport id
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register creates a pending (unauthenticated) session for a new transport
// connection. A second register for the same transport replaces the first;
// the registry never holds two sessions for one transport.
func (r *Registry) Register(transportID, remoteAddr string, conn Conn) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		TransportID: transportID,
		RemoteAddr:  remoteAddr,
		conn:        conn,
	}
	r.mu.Lock()
	if old, ok := r.sessions[transportID]; ok && old.Authenticated {
		metrics.Get().SessionsConnected.Dec()
	}
	r.sessions[transportID] = s
	r.mu.Unlock()
	return s
}

// Authenticate marks a pending session as an identified operator. The caller
// has already verified credentials; this only records identity and enforces
// one authenticated session per transport.
func (r *Registry) Authenticate(s *Session, extension, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[s.TransportID]
	if !ok || cur != s {
		return ErrUnknownTransport
	}
	if s.Authenticated {
		return ErrAlreadyAuthenticated
	}
	s.Extension = extension
	s.DisplayName = displayName
	s.Authenticated = true
	metrics.Get().SessionsConnected.Inc()
	return nil
}

// Remove drops the session for a transport, if any.
func (r *Registry) Remove(transportID string) {
	r.mu.Lock()
	if s, ok := r.sessions[transportID]; ok {
		if s.Authenticated {
			metrics.Get().SessionsConnected.Dec()
		}
		delete(r.sessions, transportID)
	}
	r.mu.Unlock()
}

// Authenticated returns a snapshot of every authenticated session.
func (r *Registry) Authenticated() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Authenticated {
			out = append(out, s)
		}
	}
	return out
}

// ForExtension returns every authenticated session logged in as the given
// extension; multi-device logins all match.
func (r *Registry) ForExtension(extension string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.sessions {
		if s.Authenticated && s.Extension == extension {
			out = append(out, s)
		}
	}
	return out
}

// All returns a snapshot of every session, pending ones included.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
