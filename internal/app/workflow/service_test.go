package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalink/alphalink/internal/adapters/llm"
	"github.com/alphalink/alphalink/internal/adapters/storage/memory"
	"github.com/alphalink/alphalink/internal/app/workflow"
	"github.com/alphalink/alphalink/internal/domain"
)

func newService() (*workflow.Service, *memory.CollabStore, *llm.MockClient) {
	store := memory.NewCollabStore()
	mock := llm.NewMockClient()
	return workflow.NewService(store, mock, nil), store, mock
}

func createProject(t *testing.T, svc *workflow.Service) *domain.Project {
	t.Helper()

	project, err := svc.CreateProject(context.Background(), workflow.CreateProjectInput{
		Name:          "Launch plan",
		Description:   "Q3 launch",
		CreatedBy:     "alice",
		CreatorID:     "uA",
		Documentation: "Initial draft.",
	})
	require.NoError(t, err)
	return project
}

func TestAddSuggestionValidation(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.AddSuggestion(context.Background(), domain.KindProject, "p1", "  ")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddSuggestionMissingEntityIsSoft(t *testing.T) {
	svc, _, _ := newService()

	result, err := svc.AddSuggestion(context.Background(), domain.KindProject, "missing", "add a FAQ")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Project not found.", result.Message)
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	project := createProject(t, svc)

	state := func() domain.WorkflowState {
		entity, err := store.GetCollabEntity(ctx, domain.KindProject, project.ID)
		require.NoError(t, err)
		return entity.State()
	}

	assert.Equal(t, domain.StateEmpty, state())

	_, err := svc.AddSuggestion(ctx, domain.KindProject, project.ID, "add a FAQ section")
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, state())

	result, err := svc.RunAnalysis(ctx, domain.KindProject, project.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StateAnalyzed, state())

	// A later add makes the stored analysis stale without clearing it.
	_, err = svc.AddSuggestion(ctx, domain.KindProject, project.ID, "shorten the intro")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStale, state())

	got, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Analysis)
}

func TestRunAnalysisRequiresSuggestions(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	project := createProject(t, svc)

	result, err := svc.RunAnalysis(ctx, domain.KindProject, project.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No suggestions to analyze.", result.Message)

	// No write happened.
	got, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Initial draft.", got.Documentation)
	assert.Nil(t, got.Analysis)
}

func TestRunAnalysisTotalRewrite(t *testing.T) {
	ctx := context.Background()
	svc, store, mock := newService()
	project := createProject(t, svc)

	suggestions := []string{"add a FAQ section", "shorten the intro", "should we add pricing?"}
	for _, s := range suggestions {
		_, err := svc.AddSuggestion(ctx, domain.KindProject, project.ID, s)
		require.NoError(t, err)
	}

	result, err := svc.RunAnalysis(ctx, domain.KindProject, project.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	got, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Analysis)
	assert.Len(t, got.Analysis.AnalyzedSuggestions, len(suggestions))
	assert.Equal(t, len(suggestions), got.AnalyzedAtSuggestionCount)

	// Documentation is replaced wholesale with the rewrite.
	expected, err := mock.AnalyzeSuggestions(ctx, "Initial draft.", suggestions)
	require.NoError(t, err)
	assert.Equal(t, expected.RevisedDocumentation, got.Documentation)
}

func TestRunAnalysisGenerationFailureIsHard(t *testing.T) {
	ctx := context.Background()
	svc, store, mock := newService()
	project := createProject(t, svc)

	_, err := svc.AddSuggestion(ctx, domain.KindProject, project.ID, "add a FAQ section")
	require.NoError(t, err)

	mock.AnalysisErr = fmt.Errorf("no structured output: %w", domain.ErrGenerationFailure)

	_, err = svc.RunAnalysis(ctx, domain.KindProject, project.ID)
	require.ErrorIs(t, err, domain.ErrGenerationFailure)

	// The failed run wrote nothing.
	got, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Initial draft.", got.Documentation)
	assert.Nil(t, got.Analysis)
}

// Each successive run must be internally consistent, but the two
// rewrites are not required to match: the backend is non-deterministic.
func TestRunAnalysisTwiceEachRunConsistent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	project := createProject(t, svc)

	_, err := svc.AddSuggestion(ctx, domain.KindProject, project.ID, "add a FAQ section")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := svc.RunAnalysis(ctx, domain.KindProject, project.ID)
		require.NoError(t, err)
		assert.True(t, result.Success)

		got, err := store.GetProject(ctx, project.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Analysis)
		assert.Len(t, got.Analysis.AnalyzedSuggestions, 1)
		assert.Equal(t, got.Analysis.RevisedDocumentation, got.Documentation)
	}
}

// Concurrent appends may interleave in any order, but no element may be
// lost and equal strings must not collapse.
func TestConcurrentAddSuggestionLosesNothing(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	project := createProject(t, svc)

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			// Half the writers submit the same text on purpose.
			text := "duplicate idea"
			if i%2 == 0 {
				text = fmt.Sprintf("idea %d", i)
			}
			_, err := svc.AddSuggestion(ctx, domain.KindProject, project.ID, text)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, got.Suggestions, writers)

	seen := map[string]int{}
	for _, s := range got.Suggestions {
		seen[s]++
	}
	assert.Equal(t, writers/2, seen["duplicate idea"])
	for i := 0; i < writers; i += 2 {
		assert.Equal(t, 1, seen[fmt.Sprintf("idea %d", i)])
	}
}

func TestCopilotSessionParallelShape(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()

	session, err := svc.CreateCopilotSession(ctx, workflow.CreateCopilotSessionInput{
		Name:               "legacy flow",
		ProjectDescription: "An app for plant care.",
		CreatedBy:          "bob",
		CreatorID:          "uB",
	})
	require.NoError(t, err)

	_, err = svc.AddSuggestion(ctx, domain.KindCopilotSession, session.ID, "support reminders")
	require.NoError(t, err)

	result, err := svc.RunAnalysis(ctx, domain.KindCopilotSession, session.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	got, err := store.GetCopilotSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, got.Analysis.RevisedDocumentation, got.ProjectDescription)
	assert.Equal(t, domain.StateAnalyzed, got.View().State())
}
