package chat

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

// aiCommand is the case-insensitive token that triggers an AI reply
// when it starts a message.
const aiCommand = "@ai"

// historyLimit bounds how much log context is loaded for a reply.
const historyLimit = 20

// Service is the message log: ordered append/list per session plus the
// @ai command interception.
type Service struct {
	sessions domain.SessionStore
	messages domain.MessageStore
	gen      domain.GenerativeClient
	notifier domain.Notifier
	personas *Catalog
	now      func() time.Time
}

func NewService(
	sessions domain.SessionStore,
	messages domain.MessageStore,
	gen domain.GenerativeClient,
	notifier domain.Notifier,
	personas *Catalog,
) *Service {
	if personas == nil {
		personas = DefaultCatalog()
	}
	return &Service{
		sessions: sessions,
		messages: messages,
		gen:      gen,
		notifier: notifier,
		personas: personas,
		now:      time.Now,
	}
}

type PostMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Username  string
	Text      string
	MediaURL  string
	PersonaID string
}

// PostMessageOutput reports the soft outcome. A missing session sets
// ErrorMessage with Success=false and no error; a failed AI reply sets
// ErrorMessage while the user message stays persisted (Success=true).
type PostMessageOutput struct {
	Success      bool
	ErrorMessage string
	UserMessage  *domain.Message
	AIMessage    *domain.Message
}

// PostMessage appends the user's message and, when the text starts
// with the @ai token, attempts exactly one AI reply. The user message
// is durable before the generative call and is never rolled back.
func (s *Service) PostMessage(ctx context.Context, in PostMessageInput) (*PostMessageOutput, error) {
	if in.UserID == "" || strings.TrimSpace(in.Username) == "" {
		return nil, fmt.Errorf("user id and username are required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" && strings.TrimSpace(in.MediaURL) == "" {
		return nil, fmt.Errorf("either text or media url is required: %w", domain.ErrValidation)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", in.SessionID,
		"user_id", in.UserID,
	)

	if _, err := s.sessions.GetSession(ctx, in.SessionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &PostMessageOutput{Success: false, ErrorMessage: "Session not found."}, nil
		}
		log.Error("failed to load session", "error", err)
		return nil, err
	}

	// The message is persisted verbatim, @ai prefix included.
	userMsg := &domain.Message{
		ID:             domain.MessageID(uuid.NewString()),
		SessionID:      in.SessionID,
		SenderID:       string(in.UserID),
		SenderUsername: strings.TrimSpace(in.Username),
		Text:           in.Text,
		MediaURL:       strings.TrimSpace(in.MediaURL),
		Timestamp:      s.now().UTC(),
	}

	if err := s.messages.AppendMessage(ctx, userMsg); err != nil {
		log.Error("failed to append message", "error", err)
		return nil, err
	}
	s.publish(in.SessionID, "message.created", userMsg)

	out := &PostMessageOutput{Success: true, UserMessage: userMsg}

	prompt, isCommand := StripAICommand(in.Text)
	if !isCommand {
		return out, nil
	}

	aiMsg, err := s.generateReply(ctx, in, prompt)
	if err != nil {
		// At-most-one attempt: the user message stays, no retry.
		log.Error("ai reply failed", "error", err)
		out.ErrorMessage = "The AI could not respond."
		return out, nil
	}

	out.AIMessage = aiMsg
	return out, nil
}

func (s *Service) generateReply(ctx context.Context, in PostMessageInput, prompt string) (*domain.Message, error) {
	persona, _ := s.personas.Resolve(in.PersonaID)

	label := persona.Name
	if label == "" {
		label = domain.DefaultPersonaLabel
	}

	// History is best-effort context; a read failure does not abort
	// the reply attempt.
	history, err := s.messages.ListMessages(ctx, in.SessionID, historyLimit)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("history unavailable for ai reply", "error", err)
		history = nil
	}

	replyText, err := s.gen.GenerateReply(ctx, prompt, persona, history)
	if err != nil {
		return nil, err
	}

	aiMsg := &domain.Message{
		ID:             domain.MessageID(uuid.NewString()),
		SessionID:      in.SessionID,
		SenderID:       domain.SenderAI,
		SenderUsername: label,
		Text:           replyText,
		Timestamp:      s.now().UTC(),
		IsAIMessage:    true,
	}

	if err := s.messages.AppendMessage(ctx, aiMsg); err != nil {
		return nil, err
	}
	s.publish(in.SessionID, "message.created", aiMsg)

	return aiMsg, nil
}

// ListMessages returns the session log ascending by timestamp. The
// ordering comes from the store query and holds under concurrent
// posting.
func (s *Service) ListMessages(ctx context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	return s.messages.ListMessages(ctx, sessionID, 0)
}

func (s *Service) Personas() []domain.Persona {
	return s.personas.List()
}

func (s *Service) publish(sessionID domain.SessionID, eventType string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(domain.SessionChannel(sessionID), domain.Event{Type: eventType, Payload: payload})
}

// StripAICommand reports whether text begins with the @ai token
// (case-insensitive, followed by whitespace or end of string) and
// returns the remainder with the token and surrounding space removed.
// Tokens merely prefixed with "@ai", like "@aid", do not trigger.
func StripAICommand(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(aiCommand) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(aiCommand)], aiCommand) {
		return "", false
	}

	rest := trimmed[len(aiCommand):]
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") && !strings.HasPrefix(rest, "\n") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
