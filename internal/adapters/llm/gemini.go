package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/alphalink/alphalink/internal/domain"
)

// historyLimit caps how many prior messages are sent as chat context.
const historyLimit = 20

// GeminiClient implements domain.GenerativeClient on Vertex AI.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, projectID, location, modelName string) (*GeminiClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("projectID and location are required for the Gemini client")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GeminiClient{client: client, modelName: modelName}, nil
}

// GenerateReply implements domain.GenerativeClient for chat replies.
func (g *GeminiClient) GenerateReply(
	ctx context.Context,
	prompt string,
	persona domain.Persona,
	history []*domain.Message,
) (string, error) {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	var contents []*genai.Content
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.IsAIMessage {
			role = genai.RoleModel
		}
		if m.Text == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	temp := float32(0.7)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(BuildPersonaPrompt(persona), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   8192,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("empty chat reply: %w", domain.ErrGenerationFailure)
	}
	return text, nil
}

// analysisResponse mirrors the JSON the model is constrained to emit.
type analysisResponse struct {
	AnalyzedSuggestions []struct {
		Suggestion             string `json:"suggestion"`
		IncorporationRationale string `json:"incorporation_rationale"`
		IsIncorporated         bool   `json:"is_incorporated"`
	} `json:"analyzed_suggestions"`
	RevisedDocumentation string `json:"revised_documentation"`
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"analyzed_suggestions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"suggestion":              {Type: genai.TypeString},
					"incorporation_rationale": {Type: genai.TypeString},
					"is_incorporated":         {Type: genai.TypeBoolean},
				},
				Required: []string{"suggestion", "incorporation_rationale", "is_incorporated"},
			},
		},
		"revised_documentation": {Type: genai.TypeString},
	},
	Required: []string{"analyzed_suggestions", "revised_documentation"},
}

// AnalyzeSuggestions implements domain.GenerativeClient for the
// collaboration workflow. The model output is constrained to the
// analysis schema; anything that fails to decode is a generation
// failure, never a partial result.
func (g *GeminiClient) AnalyzeSuggestions(
	ctx context.Context,
	document string,
	suggestions []string,
) (*domain.Analysis, error) {
	temp := float32(0.3)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisInstruction, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   16384,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema,
	}

	contents := []*genai.Content{
		genai.NewContentFromText(BuildAnalysisPrompt(document, suggestions), genai.RoleUser),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini analyze suggestions: %w", err)
	}

	raw := res.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty analysis response: %w", domain.ErrGenerationFailure)
	}

	var decoded analysisResponse
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %v: %w", err, domain.ErrGenerationFailure)
	}
	if decoded.RevisedDocumentation == "" || len(decoded.AnalyzedSuggestions) == 0 {
		return nil, fmt.Errorf("incomplete analysis response: %w", domain.ErrGenerationFailure)
	}

	analysis := &domain.Analysis{
		RevisedDocumentation: decoded.RevisedDocumentation,
	}
	for _, s := range decoded.AnalyzedSuggestions {
		analysis.AnalyzedSuggestions = append(analysis.AnalyzedSuggestions, domain.AnalyzedSuggestion{
			Suggestion:             s.Suggestion,
			IncorporationRationale: s.IncorporationRationale,
			IsIncorporated:         s.IsIncorporated,
		})
	}
	return analysis, nil
}
