package workflow

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

// Result is the soft outcome of a workflow mutation.
type Result struct {
	Success bool
	Message string
}

// Service runs the suggestion/analysis workflow over projects and
// co-pilot sessions.
type Service struct {
	store    domain.CollabStore
	gen      domain.GenerativeClient
	notifier domain.Notifier
	now      func() time.Time
}

func NewService(store domain.CollabStore, gen domain.GenerativeClient, notifier domain.Notifier) *Service {
	return &Service{
		store:    store,
		gen:      gen,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateProjectInput struct {
	Name          string
	Description   string
	IsPrivate     bool
	CreatedBy     string
	CreatorID     domain.UserID
	Roadmap       string
	Canvas        string
	Documentation string
}

func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*domain.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("project name is required: %w", domain.ErrValidation)
	}

	now := s.now().UTC()
	project := &domain.Project{
		ID:            domain.EntityID(uuid.NewString()),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		IsPrivate:     in.IsPrivate,
		CreatedBy:     in.CreatedBy,
		CreatorID:     in.CreatorID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Roadmap:       in.Roadmap,
		Canvas:        in.Canvas,
		Documentation: in.Documentation,
		Suggestions:   []string{},
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to create project", "error", err)
		return nil, err
	}
	return project, nil
}

type CreateCopilotSessionInput struct {
	Name               string
	ProjectDescription string
	CreatedBy          string
	CreatorID          domain.UserID
}

func (s *Service) CreateCopilotSession(ctx context.Context, in CreateCopilotSessionInput) (*domain.CopilotSession, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("co-pilot session name is required: %w", domain.ErrValidation)
	}

	now := s.now().UTC()
	session := &domain.CopilotSession{
		ID:                 domain.EntityID(uuid.NewString()),
		Name:               strings.TrimSpace(in.Name),
		ProjectDescription: in.ProjectDescription,
		CreatedBy:          in.CreatedBy,
		CreatorID:          in.CreatorID,
		CreatedAt:          now,
		UpdatedAt:          now,
		Suggestions:        []string{},
	}

	if err := s.store.CreateCopilotSession(ctx, session); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to create copilot session", "error", err)
		return nil, err
	}
	return session, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) GetProject(ctx context.Context, id domain.EntityID) (*domain.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *Service) GetCopilotSession(ctx context.Context, id domain.EntityID) (*domain.CopilotSession, error) {
	return s.store.GetCopilotSession(ctx, id)
}

// AddSuggestion appends one free-text suggestion. The store append is
// atomic, so concurrent adds from different participants may
// interleave but never lose an element.
func (s *Service) AddSuggestion(ctx context.Context, kind domain.CollabKind, id domain.EntityID, suggestion string) (Result, error) {
	if strings.TrimSpace(suggestion) == "" {
		return Result{}, fmt.Errorf("suggestion text is required: %w", domain.ErrValidation)
	}

	log := observability.LoggerFromContext(ctx).With("entity_kind", kind, "entity_id", id)

	if err := s.store.AppendSuggestion(ctx, kind, id, strings.TrimSpace(suggestion)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Success: false, Message: notFoundMessage(kind)}, nil
		}
		log.Error("failed to append suggestion", "error", err)
		return Result{}, err
	}

	s.publish(kind, id, "suggestion.added", map[string]string{"suggestion": strings.TrimSpace(suggestion)})

	log.Info("suggestion added")
	return Result{Success: true, Message: "Suggestion added."}, nil
}

// RunAnalysis classifies every stored suggestion and replaces the
// document body with the rewrite, in one store write. An empty
// suggestion list is a soft failure with no write. A generative
// failure is a hard error with no write: a partial analysis must never
// look like success. Two concurrent runs race and the later write
// wins; analysis is operator-triggered and infrequent, so that race is
// accepted rather than guarded.
//
// Re-running on an identical suggestion set can produce a different
// rewrite; the backend is non-deterministic and the contract only
// promises that each run's output is internally consistent.
func (s *Service) RunAnalysis(ctx context.Context, kind domain.CollabKind, id domain.EntityID) (Result, error) {
	log := observability.LoggerFromContext(ctx).With("entity_kind", kind, "entity_id", id)

	entity, err := s.store.GetCollabEntity(ctx, kind, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Result{Success: false, Message: notFoundMessage(kind)}, nil
		}
		log.Error("failed to load entity", "error", err)
		return Result{}, err
	}

	if len(entity.Suggestions) == 0 {
		return Result{Success: false, Message: "No suggestions to analyze."}, nil
	}

	log.Info("running analysis", "suggestion_count", len(entity.Suggestions), "state", entity.State())

	analysis, err := s.gen.AnalyzeSuggestions(ctx, entity.Document, entity.Suggestions)
	if err != nil {
		log.Error("analysis generation failed", "error", err)
		return Result{}, fmt.Errorf("analyzing %s %s: %w", kind, id, err)
	}
	if analysis == nil || analysis.RevisedDocumentation == "" ||
		len(analysis.AnalyzedSuggestions) != len(entity.Suggestions) {
		log.Error("analysis output malformed")
		return Result{}, fmt.Errorf("analyzing %s %s: %w", kind, id, domain.ErrGenerationFailure)
	}

	if err := s.store.WriteAnalysis(ctx, kind, id, analysis, analysis.RevisedDocumentation, len(entity.Suggestions)); err != nil {
		log.Error("failed to write analysis", "error", err)
		return Result{}, err
	}

	s.publish(kind, id, "analysis.completed", map[string]any{
		"analyzed_count": len(analysis.AnalyzedSuggestions),
	})

	log.Info("analysis complete")
	return Result{Success: true, Message: "Analysis complete."}, nil
}

func (s *Service) publish(kind domain.CollabKind, id domain.EntityID, eventType string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(domain.EntityChannel(kind, id), domain.Event{Type: eventType, Payload: payload})
}

func notFoundMessage(kind domain.CollabKind) string {
	if kind == domain.KindCopilotSession {
		return "Co-pilot session not found."
	}
	return "Project not found."
}
