package chat

import "github.com/alphalink/alphalink/internal/domain"

// Catalog is the static persona set AI replies can speak as.
type Catalog struct {
	personas []domain.Persona
	byID     map[string]domain.Persona
}

// DefaultCatalog mirrors the persona picker shipped with the app.
func DefaultCatalog() *Catalog {
	return NewCatalog([]domain.Persona{
		{
			ID:   "nova",
			Name: "Nova",
			SystemPrompt: "You are Nova, AlphaLink's creative director persona. " +
				"Answer with bold, visual ideas and keep replies short enough for a chat window.",
		},
		{
			ID:   "atlas",
			Name: "Atlas",
			SystemPrompt: "You are Atlas, AlphaLink's pragmatic engineer persona. " +
				"Be precise, prefer concrete steps over abstractions, and flag risks plainly.",
		},
		{
			ID:   "lyra",
			Name: "Lyra",
			SystemPrompt: "You are Lyra, AlphaLink's facilitator persona. " +
				"Summarize, find common ground between participants, and ask one clarifying question at most.",
		},
	})
}

func NewCatalog(personas []domain.Persona) *Catalog {
	byID := make(map[string]domain.Persona, len(personas))
	for _, p := range personas {
		byID[p.ID] = p
	}
	return &Catalog{personas: personas, byID: byID}
}

func (c *Catalog) List() []domain.Persona {
	return c.personas
}

// Resolve maps a persona id to its persona. An empty or unknown id
// yields the zero persona, which the reply path labels with the
// default.
func (c *Catalog) Resolve(id string) (domain.Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}
