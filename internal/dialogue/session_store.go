package dialogue

import "context"

// SessionStore maps a session id to its state. Implementations are simple
// last-write-wins key/value stores; per-session write serialization is the
// engine's responsibility.
type SessionStore interface {
	// Get returns the session for id, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Put saves the session under id, replacing any previous value.
	Put(ctx context.Context, id string, s *Session) error
	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
