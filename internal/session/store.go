// Package session keeps per-browser conversation history in memory.
//
// The store is a process-wide map from session ID to an ordered list of
// turns. Entries live for the process lifetime: there is no eviction and no
// persistence. A production deployment would put a bounded, externally
// backed store (LRU with TTL, Redis) behind the same interface.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation. Immutable once appended; ordering
// in the store is insertion order. Alternation of user/assistant turns is a
// caller convention, not enforced here.
type Turn struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role, message string) Turn {
	return Turn{Role: role, Message: message, Timestamp: time.Now()}
}

// Store maps session IDs to conversation history.
// Safe for concurrent use by multiple goroutines; the mutex guarantees
// cross-session isolation but does not serialize concurrent requests within
// one session.
type Store struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID][]Turn
}

// New creates an empty store.
func New() *Store {
	return &Store{conversations: make(map[uuid.UUID][]Turn)}
}

// Ensure creates an empty history for id if none exists.
func (s *Store) Ensure(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		s.conversations[id] = []Turn{}
	}
}

// Append adds a turn to the session's history. The id must already exist
// (callers Ensure first); appends to unknown sessions are dropped.
func (s *Store) Append(id uuid.UUID, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.conversations[id]
	if !ok {
		return
	}
	s.conversations[id] = append(turns, turn)
}

// Clear empties the session's history. The session ID itself survives.
// No-op for unknown ids.
func (s *Store) Clear(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; ok {
		s.conversations[id] = []Turn{}
	}
}

// History returns a copy of the session's turns in conversation order.
// Unknown ids yield an empty slice, never an error.
func (s *Store) History(id uuid.UUID) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.conversations[id]
	if !ok {
		return []Turn{}
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Len reports the number of known sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
