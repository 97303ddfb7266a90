package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alphalink/alphalink/internal/domain"
)

// SessionStore is an in-memory domain.SessionStore for tests and local
// development.
type SessionStore struct {
	mu           sync.RWMutex
	sessions     map[domain.SessionID]*domain.Session
	participants map[domain.SessionID]map[domain.UserID]*domain.Participant
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:     make(map[domain.SessionID]*domain.Session),
		participants: make(map[domain.SessionID]map[domain.UserID]*domain.Participant),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	copied := *session
	return &copied, nil
}

func (s *SessionStore) ListSessions(_ context.Context) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *SessionStore) UpsertParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.participants[p.SessionID]
	if !ok {
		members = make(map[domain.UserID]*domain.Participant)
		s.participants[p.SessionID] = members
	}

	copied := *p
	if existing, ok := members[p.UserID]; ok {
		// Refresh username, keep the original join time.
		copied.JoinedAt = existing.JoinedAt
	}
	members[p.UserID] = &copied
	return nil
}

func (s *SessionStore) RemoveParticipants(_ context.Context, sessionID domain.SessionID, userID domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.participants[sessionID]
	if !ok {
		return 0, nil
	}
	if _, ok := members[userID]; !ok {
		return 0, nil
	}

	delete(members, userID)
	return 1, nil
}

func (s *SessionStore) ListParticipants(_ context.Context, sessionID domain.SessionID) ([]*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.participants[sessionID]
	out := make([]*domain.Participant, 0, len(members))
	for _, p := range members {
		copied := *p
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}
