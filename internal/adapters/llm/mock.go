package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/alphalink/alphalink/internal/domain"
)

// MockClient is a deterministic domain.GenerativeClient for local dev
// and tests. Set ReplyErr or AnalysisErr to exercise failure paths.
type MockClient struct {
	ReplyErr    error
	AnalysisErr error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GenerateReply(
	_ context.Context,
	prompt string,
	persona domain.Persona,
	_ []*domain.Message,
) (string, error) {
	if m.ReplyErr != nil {
		return "", m.ReplyErr
	}

	name := persona.Name
	if name == "" {
		name = domain.DefaultPersonaLabel
	}
	return fmt.Sprintf("[%s] You said: %q. Here is a short answer.", name, prompt), nil
}

// AnalyzeSuggestions incorporates every suggestion that is not phrased
// as a question and appends the accepted ones to the document.
func (m *MockClient) AnalyzeSuggestions(
	_ context.Context,
	document string,
	suggestions []string,
) (*domain.Analysis, error) {
	if m.AnalysisErr != nil {
		return nil, m.AnalysisErr
	}

	analyzed := lo.Map(suggestions, func(s string, _ int) domain.AnalyzedSuggestion {
		accepted := !strings.HasSuffix(strings.TrimSpace(s), "?")
		rationale := "Concrete proposal, folded into the document."
		if !accepted {
			rationale = "Open question, not an actionable change."
		}
		return domain.AnalyzedSuggestion{
			Suggestion:             s,
			IncorporationRationale: rationale,
			IsIncorporated:         accepted,
		}
	})

	accepted := lo.FilterMap(analyzed, func(a domain.AnalyzedSuggestion, _ int) (string, bool) {
		return "- " + a.Suggestion, a.IsIncorporated
	})

	revised := strings.TrimSpace(document)
	if len(accepted) > 0 {
		if revised != "" {
			revised += "\n\n"
		}
		revised += "Incorporated suggestions:\n" + strings.Join(accepted, "\n")
	}
	if revised == "" {
		revised = "(no content)"
	}

	return &domain.Analysis{
		AnalyzedSuggestions:  analyzed,
		RevisedDocumentation: revised,
	}, nil
}
