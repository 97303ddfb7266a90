package domain

import "time"

// AnalyzedSuggestion is the verdict the generative service produced for
// a single stored suggestion.
type AnalyzedSuggestion struct {
	Suggestion             string
	IncorporationRationale string
	IsIncorporated         bool
}

// Analysis is the structured output of one analysis run: a verdict per
// suggestion plus the full rewritten document. The rewrite is a total
// replacement, not a merge, and the backend is non-deterministic, so
// two runs on identical input may legitimately differ.
type Analysis struct {
	AnalyzedSuggestions  []AnalyzedSuggestion
	RevisedDocumentation string
}

// Project is the primary collaboration entity.
type Project struct {
	ID            EntityID
	Name          string
	Description   string
	IsPrivate     bool
	CreatedBy     string
	CreatorID     UserID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Roadmap       string
	Canvas        string
	Documentation string
	Suggestions   []string
	Analysis      *Analysis

	// AnalyzedAtSuggestionCount is the length of Suggestions at the
	// moment Analysis was last written. Suggestions added afterwards
	// make the stored analysis stale without clearing it.
	AnalyzedAtSuggestionCount int
}

// CopilotSession is the legacy parallel entity: same suggestion/analysis
// pair as Project, minus roadmap and canvas, operating on a project
// description instead of a documentation body.
type CopilotSession struct {
	ID                 EntityID
	Name               string
	ProjectDescription string
	CreatedBy          string
	CreatorID          UserID
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Suggestions        []string
	Analysis           *Analysis

	AnalyzedAtSuggestionCount int
}

// CollabEntity is the normalized view the workflow operates on,
// independent of which of the two shapes backs it. Document holds
// Documentation for projects and ProjectDescription for co-pilot
// sessions.
type CollabEntity struct {
	Kind        CollabKind
	ID          EntityID
	Name        string
	Document    string
	Suggestions []string
	Analysis    *Analysis
	UpdatedAt   time.Time

	AnalyzedAtSuggestionCount int
}

// WorkflowState is the explicit tag over the suggestion/analysis pair.
type WorkflowState string

const (
	StateEmpty    WorkflowState = "empty"
	StatePending  WorkflowState = "pending"
	StateAnalyzed WorkflowState = "analyzed"
	StateStale    WorkflowState = "stale"
)

// State derives the workflow state. A stored analysis is stale once the
// suggestion count has moved past the count it was computed from.
func (e *CollabEntity) State() WorkflowState {
	switch {
	case len(e.Suggestions) == 0:
		return StateEmpty
	case e.Analysis == nil:
		return StatePending
	case len(e.Suggestions) == e.AnalyzedAtSuggestionCount:
		return StateAnalyzed
	default:
		return StateStale
	}
}

// View returns the normalized workflow view of a project.
func (p *Project) View() *CollabEntity {
	return &CollabEntity{
		Kind:                      KindProject,
		ID:                        p.ID,
		Name:                      p.Name,
		Document:                  p.Documentation,
		Suggestions:               p.Suggestions,
		Analysis:                  p.Analysis,
		UpdatedAt:                 p.UpdatedAt,
		AnalyzedAtSuggestionCount: p.AnalyzedAtSuggestionCount,
	}
}

// View returns the normalized workflow view of a co-pilot session.
func (c *CopilotSession) View() *CollabEntity {
	return &CollabEntity{
		Kind:                      KindCopilotSession,
		ID:                        c.ID,
		Name:                      c.Name,
		Document:                  c.ProjectDescription,
		Suggestions:               c.Suggestions,
		Analysis:                  c.Analysis,
		UpdatedAt:                 c.UpdatedAt,
		AnalyzedAtSuggestionCount: c.AnalyzedAtSuggestionCount,
	}
}
