// Package session holds in-progress conversation state. Each session is
// owned by exactly one conversation; the store only guards the map itself.
package session

import (
	"sync"

	"bookline/internal/domain"
)

type Store struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]domain.Session)}
}

func (s *Store) Load(userID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *Store) Save(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
}

func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
