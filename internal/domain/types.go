package domain

type SessionID string
type UserID string
type MessageID string
type ParticipantID string
type EntityID string

// SenderAI is the reserved sender id for messages authored by the
// generative backend rather than a human participant.
const SenderAI = "ai"

// CollabKind distinguishes the two parallel collaboration entities.
// Projects carry roadmap/canvas fields and a documentation body;
// co-pilot sessions are the legacy shape working on a project description.
type CollabKind string

const (
	KindProject        CollabKind = "project"
	KindCopilotSession CollabKind = "copilot-session"
)

// Persona is a configurable identity for AI chat replies.
type Persona struct {
	ID           string
	Name         string
	SystemPrompt string
}

// DefaultPersonaLabel is used for AI replies when no persona is selected
// or the requested persona id is unknown.
const DefaultPersonaLabel = "AI Assistant"
