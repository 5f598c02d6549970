// Package memstore provides an in-memory conversation session store,
// used in tests and single-process deployments.
package memstore

import (
	"context"
	"sync"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[int64]conv.Session
}

func New() *Store {
	return &Store{sessions: make(map[int64]conv.Session)}
}

func (s *Store) Get(_ context.Context, principalID int64) (*conv.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[principalID]
	if !ok {
		return nil, nil
	}
	sess.Payload = sess.Payload.Clone()
	return &sess, nil
}

func (s *Store) Put(_ context.Context, sess *conv.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *sess
	stored.Payload = sess.Payload.Clone()
	s.sessions[sess.PrincipalID] = stored
	return nil
}

func (s *Store) Delete(_ context.Context, principalID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, principalID)
	return nil
}
