package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"admuse/internal/persona"
)

// ErrGenerationFailed indicates the text collaborator could not produce a
// usable persona set.
var ErrGenerationFailed = errors.New("persona generation failed")

// Request describes a campaign brief to generate personas for.
type Request struct {
	OfferingDescription string
	Country             string
	Count               int
	OrganizationContext string
	OfferingContext     string
}

// PersonaGenerator turns campaign briefs into raw persona records via a
// text-generation client.
type PersonaGenerator struct {
	client Client
}

// NewPersonaGenerator creates a persona generator over the given client.
func NewPersonaGenerator(client Client) *PersonaGenerator {
	return &PersonaGenerator{client: client}
}

const personaSystemPrompt = `You are a marketing strategist who invents target audience personas for advertising campaigns. You always respond with valid JSON and nothing else.`

// personaEnvelope is the wire shape the collaborator returns.
type personaEnvelope struct {
	Personas []persona.RawPersona `json:"personas"`
}

// Generate requests req.Count personas for the campaign brief.
func (g *PersonaGenerator) Generate(ctx context.Context, req Request) ([]persona.RawPersona, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrGenerationFailed)
	}

	prompt := g.buildPrompt(req)

	response, err := g.client.CompleteWithSystem(ctx, personaSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrGenerationFailed)
	}

	var envelope personaEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(envelope.Personas) == 0 {
		return nil, fmt.Errorf("%w: empty persona list", ErrGenerationFailed)
	}

	if len(envelope.Personas) > req.Count {
		envelope.Personas = envelope.Personas[:req.Count]
	}
	return envelope.Personas, nil
}

// GenerateOne requests a single replacement persona, distinct from the
// personas already occupying the other slots.
func (g *PersonaGenerator) GenerateOne(ctx context.Context, req Request, existing []persona.Persona) (persona.RawPersona, error) {
	single := req
	single.Count = 1

	prompt := g.buildPrompt(single)
	if len(existing) > 0 {
		var titles []string
		for _, p := range existing {
			titles = append(titles, p.Title)
		}
		prompt += fmt.Sprintf("\n\nThe new persona must be clearly distinct from these existing personas: %s.",
			strings.Join(titles, "; "))
	}

	response, err := g.client.CompleteWithSystem(ctx, personaSystemPrompt, prompt)
	if err != nil {
		return persona.RawPersona{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	raw := extractJSON(response)
	if raw == "" {
		return persona.RawPersona{}, fmt.Errorf("%w: no JSON object in response", ErrGenerationFailed)
	}

	var envelope personaEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return persona.RawPersona{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(envelope.Personas) == 0 {
		return persona.RawPersona{}, fmt.Errorf("%w: empty persona list", ErrGenerationFailed)
	}
	return envelope.Personas[0], nil
}

// buildPrompt assembles the user prompt for a persona request.
func (g *PersonaGenerator) buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate %d distinct marketing personas for the following offering.\n\n", req.Count)
	fmt.Fprintf(&b, "Offering: %s\n", req.OfferingDescription)
	if req.Country != "" {
		fmt.Fprintf(&b, "Target country: %s\n", req.Country)
	}
	if req.OrganizationContext != "" {
		fmt.Fprintf(&b, "About the organization: %s\n", req.OrganizationContext)
	}
	if req.OfferingContext != "" {
		fmt.Fprintf(&b, "Additional offering context: %s\n", req.OfferingContext)
	}

	b.WriteString(`
Respond with a JSON object of this exact shape:
{
  "personas": [
    {
      "id": "short-slug",
      "title": "two or three word persona name",
      "gender": "men" or "women",
      "age_min": 18,
      "age_max": 65,
      "interests": ["interest one", "interest two"],
      "tagline": "one sentence describing what this persona cares about"
    }
  ]
}

Rules:
- Each persona covers a different segment of the target audience.
- age_min must be less than or equal to age_max, both between 18 and 80.
- Exactly two interests per persona, each relevant to the offering.
- Taglines are written in the persona's own voice.`)

	return b.String()
}
