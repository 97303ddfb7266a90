package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alphalink/alphalink/internal/domain"
)

// CollabStore is an in-memory domain.CollabStore.
type CollabStore struct {
	mu       sync.RWMutex
	projects map[domain.EntityID]*domain.Project
	copilots map[domain.EntityID]*domain.CopilotSession
}

func NewCollabStore() *CollabStore {
	return &CollabStore{
		projects: make(map[domain.EntityID]*domain.Project),
		copilots: make(map[domain.EntityID]*domain.CopilotSession),
	}
}

func cloneProject(p *domain.Project) *domain.Project {
	copied := *p
	copied.Suggestions = append([]string(nil), p.Suggestions...)
	if p.Analysis != nil {
		a := *p.Analysis
		a.AnalyzedSuggestions = append([]domain.AnalyzedSuggestion(nil), p.Analysis.AnalyzedSuggestions...)
		copied.Analysis = &a
	}
	return &copied
}

func cloneCopilot(c *domain.CopilotSession) *domain.CopilotSession {
	copied := *c
	copied.Suggestions = append([]string(nil), c.Suggestions...)
	if c.Analysis != nil {
		a := *c.Analysis
		a.AnalyzedSuggestions = append([]domain.AnalyzedSuggestion(nil), c.Analysis.AnalyzedSuggestions...)
		copied.Analysis = &a
	}
	return &copied
}

func (s *CollabStore) CreateProject(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[p.ID]; exists {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *CollabStore) GetProject(_ context.Context, id domain.EntityID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return cloneProject(p), nil
}

func (s *CollabStore) ListProjects(_ context.Context) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *CollabStore) CreateCopilotSession(_ context.Context, c *domain.CopilotSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.copilots[c.ID]; exists {
		return fmt.Errorf("copilot session %s already exists", c.ID)
	}
	s.copilots[c.ID] = cloneCopilot(c)
	return nil
}

func (s *CollabStore) GetCopilotSession(_ context.Context, id domain.EntityID) (*domain.CopilotSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.copilots[id]
	if !ok {
		return nil, fmt.Errorf("copilot session %s: %w", id, domain.ErrNotFound)
	}
	return cloneCopilot(c), nil
}

func (s *CollabStore) GetCollabEntity(ctx context.Context, kind domain.CollabKind, id domain.EntityID) (*domain.CollabEntity, error) {
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

// AppendSuggestion appends under the store lock, so concurrent adds
// interleave but never lose elements and equal strings are kept.
func (s *CollabStore) AppendSuggestion(_ context.Context, kind domain.CollabKind, id domain.EntityID, suggestion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == domain.KindCopilotSession {
		c, ok := s.copilots[id]
		if !ok {
			return fmt.Errorf("copilot session %s: %w", id, domain.ErrNotFound)
		}
		c.Suggestions = append(c.Suggestions, suggestion)
		return nil
	}

	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p.Suggestions = append(p.Suggestions, suggestion)
	return nil
}

func (s *CollabStore) WriteAnalysis(
	_ context.Context,
	kind domain.CollabKind,
	id domain.EntityID,
	analysis *domain.Analysis,
	revisedDoc string,
	suggestionCount int,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *analysis
	a.AnalyzedSuggestions = append([]domain.AnalyzedSuggestion(nil), analysis.AnalyzedSuggestions...)

	if kind == domain.KindCopilotSession {
		c, ok := s.copilots[id]
		if !ok {
			return fmt.Errorf("copilot session %s: %w", id, domain.ErrNotFound)
		}
		c.Analysis = &a
		c.ProjectDescription = revisedDoc
		c.AnalyzedAtSuggestionCount = suggestionCount
		return nil
	}

	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p.Analysis = &a
	p.Documentation = revisedDoc
	p.AnalyzedAtSuggestionCount = suggestionCount
	return nil
}
