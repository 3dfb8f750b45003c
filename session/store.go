package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Store keeps live sessions keyed by their opaque id. Sessions are fully
// independent values; the store's lock only guards the map itself.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	snapshots SnapshotStore
}

// NewStore creates a session store. snapshots may be nil to disable
// persistence entirely.
func NewStore(snapshots SnapshotStore) *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		snapshots: snapshots,
	}
}

// Create starts a fresh session and registers it.
func (st *Store) Create() *Session {
	sess := New()
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return sess, nil
}

// Discard removes a finished or abandoned session.
func (st *Store) Discard(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Snapshot persists a debugging snapshot of the session if a snapshot store
// is configured. The orchestrator never reads snapshots back; failures are
// logged and swallowed.
func (st *Store) Snapshot(ctx context.Context, sess *Session) {
	if st.snapshots == nil {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		slog.Error("SESSION: Failed to marshal snapshot", "session_id", sess.ID, "error", err)
		return
	}
	if err := st.snapshots.Save(ctx, sess.ID, data); err != nil {
		slog.Error("SESSION: Failed to save snapshot", "session_id", sess.ID, "error", err)
	}
}
