package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alphalink/alphalink/internal/domain"
)

// Store implements the session, message and collaboration store ports
// on Cloud Firestore. One client serves every collection.
type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Collection helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) participantsCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("participants")
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) entityDoc(kind domain.CollabKind, id domain.EntityID) *firestore.DocumentRef {
	if kind == domain.KindCopilotSession {
		return s.client.Collection("copilot-sessions").Doc(string(id))
	}
	return s.client.Collection("projects").Doc(string(id))
}

// documentField is the name of the rewritable document body, which
// differs between the two collaboration shapes.
func documentField(kind domain.CollabKind) string {
	if kind == domain.KindCopilotSession {
		return "project_description"
	}
	return "documentation"
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Document types
// ─────────────────────────────────────────

type sessionDoc struct {
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"created_at"`
}

type participantDoc struct {
	UserID   string    `firestore:"user_id"`
	Username string    `firestore:"username"`
	JoinedAt time.Time `firestore:"joined_at"`
}

type messageDoc struct {
	SenderID       string    `firestore:"sender_id"`
	SenderUsername string    `firestore:"sender_username"`
	Text           string    `firestore:"text"`
	MediaURL       string    `firestore:"media_url"`
	Timestamp      time.Time `firestore:"timestamp"`
	IsAIMessage    bool      `firestore:"is_ai_message"`
}

type analyzedSuggestionDoc struct {
	Suggestion             string `firestore:"suggestion"`
	IncorporationRationale string `firestore:"incorporation_rationale"`
	IsIncorporated         bool   `firestore:"is_incorporated"`
}

type analysisDoc struct {
	AnalyzedSuggestions  []analyzedSuggestionDoc `firestore:"analyzed_suggestions"`
	RevisedDocumentation string                  `firestore:"revised_documentation"`
}

type projectDoc struct {
	Name          string       `firestore:"name"`
	Description   string       `firestore:"description"`
	IsPrivate     bool         `firestore:"is_private"`
	CreatedBy     string       `firestore:"created_by"`
	CreatorID     string       `firestore:"creator_id"`
	CreatedAt     time.Time    `firestore:"created_at"`
	UpdatedAt     time.Time    `firestore:"updated_at"`
	Roadmap       string       `firestore:"roadmap"`
	Canvas        string       `firestore:"canvas"`
	Documentation string       `firestore:"documentation"`
	Suggestions   []string     `firestore:"suggestions"`
	Analysis      *analysisDoc `firestore:"analysis"`

	AnalyzedAtSuggestionCount int `firestore:"analyzed_at_suggestion_count"`
}

type copilotSessionDoc struct {
	Name               string       `firestore:"name"`
	ProjectDescription string       `firestore:"project_description"`
	CreatedBy          string       `firestore:"created_by"`
	CreatorID          string       `firestore:"creator_id"`
	CreatedAt          time.Time    `firestore:"created_at"`
	UpdatedAt          time.Time    `firestore:"updated_at"`
	Suggestions        []string     `firestore:"suggestions"`
	Analysis           *analysisDoc `firestore:"analysis"`

	AnalyzedAtSuggestionCount int `firestore:"analyzed_at_suggestion_count"`
}

func toAnalysisDoc(a *domain.Analysis) *analysisDoc {
	if a == nil {
		return nil
	}
	doc := &analysisDoc{RevisedDocumentation: a.RevisedDocumentation}
	for _, s := range a.AnalyzedSuggestions {
		doc.AnalyzedSuggestions = append(doc.AnalyzedSuggestions, analyzedSuggestionDoc(s))
	}
	return doc
}

func fromAnalysisDoc(doc *analysisDoc) *domain.Analysis {
	if doc == nil {
		return nil
	}
	a := &domain.Analysis{RevisedDocumentation: doc.RevisedDocumentation}
	for _, s := range doc.AnalyzedSuggestions {
		a.AnalyzedSuggestions = append(a.AnalyzedSuggestions, domain.AnalyzedSuggestion(s))
	}
	return a
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		Name:      session.Name,
		CreatedAt: session.CreatedAt,
	}

	if _, err := s.sessionDoc(session.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return &domain.Session{
		ID:        id,
		Name:      doc.Name,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	iter := s.sessionsCol().Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessions: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, &domain.Session{
			ID:        domain.SessionID(snap.Ref.ID),
			Name:      doc.Name,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

// UpsertParticipant keys the membership record by user id, so a second
// join overwrites the first instead of duplicating it.
func (s *Store) UpsertParticipant(ctx context.Context, p *domain.Participant) error {
	doc := participantDoc{
		UserID:   string(p.UserID),
		Username: p.Username,
		JoinedAt: p.JoinedAt,
	}

	ref := s.participantsCol(p.SessionID).Doc(string(p.UserID))
	if _, err := ref.Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore UpsertParticipant: %w", err)
	}
	return nil
}

// RemoveParticipants queries by user_id rather than deleting only the
// keyed document, so records written before upsert keying drain too.
func (s *Store) RemoveParticipants(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) (int, error) {
	q := s.participantsCol(sessionID).Where("user_id", "==", string(userID))

	iter := q.Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return removed, fmt.Errorf("firestore RemoveParticipants: %w", err)
		}

		if _, err := snap.Ref.Delete(ctx); err != nil {
			return removed, fmt.Errorf("firestore RemoveParticipants delete: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionID domain.SessionID) ([]*domain.Participant, error) {
	iter := s.participantsCol(sessionID).OrderBy("joined_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Participant
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListParticipants: %w", err)
		}

		var doc participantDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode participantDoc: %w", err)
		}

		out = append(out, &domain.Participant{
			ID:        domain.ParticipantID(snap.Ref.ID),
			SessionID: sessionID,
			UserID:    domain.UserID(doc.UserID),
			Username:  doc.Username,
			JoinedAt:  doc.JoinedAt,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	doc := messageDoc{
		SenderID:       msg.SenderID,
		SenderUsername: msg.SenderUsername,
		Text:           msg.Text,
		MediaURL:       msg.MediaURL,
		Timestamp:      msg.Timestamp,
		IsAIMessage:    msg.IsAIMessage,
	}

	ref := s.messagesCol(msg.SessionID).Doc(string(msg.ID))
	if _, err := ref.Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

// ListMessages is the subsystem's single ordering guarantee: ascending
// by the indexed timestamp field, independent of insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	q := s.messagesCol(sessionID).OrderBy("timestamp", firestore.Asc)
	if limit > 0 {
		// LimitToLast queries cannot be streamed, so collect.
		q = q.LimitToLast(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore ListMessages: %w", err)
	}

	var out []*domain.Message
	for _, snap := range snaps {
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:             domain.MessageID(snap.Ref.ID),
			SessionID:      sessionID,
			SenderID:       doc.SenderID,
			SenderUsername: doc.SenderUsername,
			Text:           doc.Text,
			MediaURL:       doc.MediaURL,
			Timestamp:      doc.Timestamp,
			IsAIMessage:    doc.IsAIMessage,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────
// CollabStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	doc := projectDoc{
		Name:                      p.Name,
		Description:               p.Description,
		IsPrivate:                 p.IsPrivate,
		CreatedBy:                 p.CreatedBy,
		CreatorID:                 string(p.CreatorID),
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
		Roadmap:                   p.Roadmap,
		Canvas:                    p.Canvas,
		Documentation:             p.Documentation,
		Suggestions:               p.Suggestions,
		Analysis:                  toAnalysisDoc(p.Analysis),
		AnalyzedAtSuggestionCount: p.AnalyzedAtSuggestionCount,
	}

	if _, err := s.entityDoc(domain.KindProject, p.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateProject: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id domain.EntityID) (*domain.Project, error) {
	snap, err := s.entityDoc(domain.KindProject, id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetProject: %w", err)
	}
	return decodeProject(snap)
}

func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	iter := s.client.Collection("projects").OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Project
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListProjects: %w", err)
		}

		p, err := decodeProject(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeProject(snap *firestore.DocumentSnapshot) (*domain.Project, error) {
	var doc projectDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode projectDoc: %w", err)
	}

	return &domain.Project{
		ID:                        domain.EntityID(snap.Ref.ID),
		Name:                      doc.Name,
		Description:               doc.Description,
		IsPrivate:                 doc.IsPrivate,
		CreatedBy:                 doc.CreatedBy,
		CreatorID:                 domain.UserID(doc.CreatorID),
		CreatedAt:                 doc.CreatedAt,
		UpdatedAt:                 doc.UpdatedAt,
		Roadmap:                   doc.Roadmap,
		Canvas:                    doc.Canvas,
		Documentation:             doc.Documentation,
		Suggestions:               doc.Suggestions,
		Analysis:                  fromAnalysisDoc(doc.Analysis),
		AnalyzedAtSuggestionCount: doc.AnalyzedAtSuggestionCount,
	}, nil
}

func (s *Store) CreateCopilotSession(ctx context.Context, c *domain.CopilotSession) error {
	doc := copilotSessionDoc{
		Name:                      c.Name,
		ProjectDescription:        c.ProjectDescription,
		CreatedBy:                 c.CreatedBy,
		CreatorID:                 string(c.CreatorID),
		CreatedAt:                 c.CreatedAt,
		UpdatedAt:                 c.UpdatedAt,
		Suggestions:               c.Suggestions,
		Analysis:                  toAnalysisDoc(c.Analysis),
		AnalyzedAtSuggestionCount: c.AnalyzedAtSuggestionCount,
	}

	if _, err := s.entityDoc(domain.KindCopilotSession, c.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateCopilotSession: %w", err)
	}
	return nil
}

func (s *Store) GetCopilotSession(ctx context.Context, id domain.EntityID) (*domain.CopilotSession, error) {
	snap, err := s.entityDoc(domain.KindCopilotSession, id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("copilot session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetCopilotSession: %w", err)
	}
	return decodeCopilotSession(snap)
}

func decodeCopilotSession(snap *firestore.DocumentSnapshot) (*domain.CopilotSession, error) {
	var doc copilotSessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode copilotSessionDoc: %w", err)
	}

	return &domain.CopilotSession{
		ID:                        domain.EntityID(snap.Ref.ID),
		Name:                      doc.Name,
		ProjectDescription:        doc.ProjectDescription,
		CreatedBy:                 doc.CreatedBy,
		CreatorID:                 domain.UserID(doc.CreatorID),
		CreatedAt:                 doc.CreatedAt,
		UpdatedAt:                 doc.UpdatedAt,
		Suggestions:               doc.Suggestions,
		Analysis:                  fromAnalysisDoc(doc.Analysis),
		AnalyzedAtSuggestionCount: doc.AnalyzedAtSuggestionCount,
	}, nil
}

func (s *Store) GetCollabEntity(ctx context.Context, kind domain.CollabKind, id domain.EntityID) (*domain.CollabEntity, error) {
	if kind == domain.KindCopilotSession {
		c, err := s.GetCopilotSession(ctx, id)
		if err != nil {
			return nil, err
		}
		return c.View(), nil
	}

	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.View(), nil
}

// AppendSuggestion runs a document transaction: read the array, append,
// write it back. ArrayUnion would be cheaper but collapses equal
// strings, which loses repeated suggestions; the transaction keeps the
// append atomic without deduplicating.
func (s *Store) AppendSuggestion(ctx context.Context, kind domain.CollabKind, id domain.EntityID, suggestion string) error {
	ref := s.entityDoc(kind, id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
			}
			return err
		}

		var current []string
		raw, err := snap.DataAt("suggestions")
		if err == nil && raw != nil {
			if list, ok := raw.([]interface{}); ok {
				for _, v := range list {
					if str, ok := v.(string); ok {
						current = append(current, str)
					}
				}
			}
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "suggestions", Value: append(current, suggestion)},
			{Path: "updated_at", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("firestore AppendSuggestion: %w", err)
	}
	return nil
}

// WriteAnalysis lands analysis, rewritten document body and the
// suggestion count in one document update, so readers never observe a
// partial analysis result.
func (s *Store) WriteAnalysis(
	ctx context.Context,
	kind domain.CollabKind,
	id domain.EntityID,
	analysis *domain.Analysis,
	revisedDoc string,
	suggestionCount int,
) error {
	updates := []firestore.Update{
		{Path: "analysis", Value: toAnalysisDoc(analysis)},
		{Path: documentField(kind), Value: revisedDoc},
		{Path: "analyzed_at_suggestion_count", Value: suggestionCount},
		{Path: "updated_at", Value: time.Now().UTC()},
	}

	if _, err := s.entityDoc(kind, id).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return fmt.Errorf("firestore WriteAnalysis: %w", err)
	}
	return nil
}
