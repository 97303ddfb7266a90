package domain

import "context"

// SessionStore persists sessions and their participant subcollection.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)

	// UpsertParticipant creates or refreshes the membership record for
	// (participant.SessionID, participant.UserID).
	UpsertParticipant(ctx context.Context, participant *Participant) error

	// RemoveParticipants deletes every membership record matching
	// (sessionID, userID) and reports how many were removed.
	RemoveParticipants(ctx context.Context, sessionID SessionID, userID UserID) (int, error)

	ListParticipants(ctx context.Context, sessionID SessionID) ([]*Participant, error)
}

// MessageStore persists the per-session message log. ListMessages is
// the one ordering guarantee in the subsystem: ascending by Timestamp.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
}

// CollabStore persists projects and co-pilot sessions.
//
// AppendSuggestion must be atomic with respect to concurrent appends on
// the same entity: no concurrently added element may be lost, and equal
// strings must not be collapsed.
type CollabStore interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id EntityID) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)

	CreateCopilotSession(ctx context.Context, session *CopilotSession) error
	GetCopilotSession(ctx context.Context, id EntityID) (*CopilotSession, error)

	GetCollabEntity(ctx context.Context, kind CollabKind, id EntityID) (*CollabEntity, error)
	AppendSuggestion(ctx context.Context, kind CollabKind, id EntityID, suggestion string) error

	// WriteAnalysis stores the analysis, overwrites the document body
	// with revisedDoc and records suggestionCount, all in one write.
	WriteAnalysis(ctx context.Context, kind CollabKind, id EntityID, analysis *Analysis, revisedDoc string, suggestionCount int) error
}

// GenerativeClient is the port to the generative text backend.
type GenerativeClient interface {
	// GenerateReply produces a free-text chat reply for prompt, with
	// persona's system instruction and recent history as context.
	GenerateReply(ctx context.Context, prompt string, persona Persona, history []*Message) (string, error)

	// AnalyzeSuggestions classifies each suggestion against the current
	// document and returns the verdicts plus a full rewrite. Returns an
	// error wrapping ErrGenerationFailure when the backend produces no
	// well-formed structured output.
	AnalyzeSuggestions(ctx context.Context, document string, suggestions []string) (*Analysis, error)
}

// Event is a live-update notification pushed to subscribed UI views.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier fans events out to subscribers of a channel (one channel per
// session or collaboration entity). Delivery order across channels is
// not guaranteed; message ordering comes from the store query, not from
// event delivery.
type Notifier interface {
	Publish(channel string, event Event)
}
