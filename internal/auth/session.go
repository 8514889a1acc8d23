package auth

import (
	"sync"
	"time"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// SessionStore keeps process-wide bookkeeping of the most recent login
// per user. It is informational only: the session token itself is the
// sole source of truth for authentication, so the store is never
// consulted on the authorization path.
type SessionStore interface {
	Record(userID, token string)
	Remove(userID string)
	Get(userID string) (types.SessionRecord, bool)
}

// MemorySessionStore is a mutex-guarded in-memory SessionStore. At most
// one record exists per user; a new login overwrites the previous one.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]types.SessionRecord
	now      func() time.Time
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]types.SessionRecord),
		now:      time.Now,
	}
}

// Record overwrites any prior entry for the user with a fresh
// last-login timestamp and token reference. Concurrent logins for the
// same user race harmlessly to last write wins.
func (s *MemorySessionStore) Record(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = types.SessionRecord{
		UserID:    userID,
		LastLogin: s.now(),
		Token:     token,
	}
}

// Remove deletes the entry for the user. Removing an absent entry is
// not an error.
func (s *MemorySessionStore) Remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Get returns the current entry for the user, if any. Used only for
// observability and debugging.
func (s *MemorySessionStore) Get(userID string) (types.SessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sessions[userID]
	return record, ok
}
