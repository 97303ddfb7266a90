package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alphalink/alphalink/internal/domain"
	"github.com/alphalink/alphalink/internal/observability"
)

// Result is the soft outcome of a membership mutation. A false Success
// with a Message is the expected shape for missing references; errors
// are reserved for persistence failures.
type Result struct {
	Success bool
	Message string
}

// Service is the session registry: session creation/listing and
// participant membership.
type Service struct {
	store    domain.SessionStore
	notifier domain.Notifier
	now      func() time.Time
}

func NewService(store domain.SessionStore, notifier domain.Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateSession creates a chat session. Persistence failures propagate:
// the caller is waiting on this write.
func (s *Service) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("session name is required: %w", domain.ErrValidation)
	}

	log := observability.LoggerFromContext(ctx).With("session_name", name)

	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("session created", "session_id", session.ID)
	return session, nil
}

// ListSessions returns all sessions. No ordering is promised by the
// contract; consumers sort as needed.
func (s *Service) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	return s.store.ListSessions(ctx)
}

// JoinSession upserts the membership record keyed by (session, user):
// a repeat join refreshes the username and succeeds without creating a
// duplicate. A missing session is a soft failure.
func (s *Service) JoinSession(ctx context.Context, sessionID domain.SessionID, userID domain.UserID, username string) (Result, error) {
	if userID == "" || strings.TrimSpace(username) == "" {
		return Result{}, fmt.Errorf("user id and username are required: %w", domain.ErrValidation)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"user_id", userID,
	)

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Success: false, Message: "Session not found."}, nil
		}
		log.Error("failed to load session", "error", err)
		return Result{}, err
	}

	participant := &domain.Participant{
		ID:        domain.ParticipantID(userID),
		SessionID: sessionID,
		UserID:    userID,
		Username:  strings.TrimSpace(username),
		JoinedAt:  s.now().UTC(),
	}

	if err := s.store.UpsertParticipant(ctx, participant); err != nil {
		log.Error("failed to upsert participant", "error", err)
		return Result{}, err
	}

	s.publish(domain.SessionChannel(sessionID), "participant.joined", participant)

	log.Info("participant joined")
	return Result{Success: true, Message: "Joined session."}, nil
}

// LeaveSession removes every membership record for (session, user);
// no matching record is a soft failure.
func (s *Service) LeaveSession(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) (Result, error) {
	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"user_id", userID,
	)

	removed, err := s.store.RemoveParticipants(ctx, sessionID, userID)
	if err != nil {
		log.Error("failed to remove participant", "error", err)
		return Result{}, err
	}
	if removed == 0 {
		return Result{Success: false, Message: "Participant not found."}, nil
	}

	s.publish(domain.SessionChannel(sessionID), "participant.left", map[string]string{
		"session_id": string(sessionID),
		"user_id":    string(userID),
	})

	log.Info("participant left", "removed", removed)
	return Result{Success: true, Message: "Left session."}, nil
}

func (s *Service) ListParticipants(ctx context.Context, sessionID domain.SessionID) ([]*domain.Participant, error) {
	return s.store.ListParticipants(ctx, sessionID)
}

func (s *Service) publish(channel, eventType string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(channel, domain.Event{Type: eventType, Payload: payload})
}
