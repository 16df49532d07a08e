package portrait

import (
	"fmt"
	"strings"

	"admuse/internal/persona"
)

// BuildPrompt assembles the natural-language portrait prompt handed to the
// image collaborator. Components appear in a fixed order: style, tagline,
// interests, then the demographic descriptor.
func BuildPrompt(p persona.Persona, offeringContext string, style Style) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Professional marketing portrait in %s style.", style.Name)

	tagline := strings.TrimSpace(p.Tagline)
	if tagline == "" {
		tagline = fmt.Sprintf("A person who genuinely loves %s", offeringContext)
	}
	fmt.Fprintf(&b, " %s.", strings.TrimSuffix(tagline, "."))

	fmt.Fprintf(&b, " Visibly interested in %s and %s.", p.Interests[0], p.Interests[1])

	fmt.Fprintf(&b, " %s %s, age %d-%d.",
		p.Race, strings.ToLower(string(p.Gender)), p.AgeMin, p.AgeMax)

	return b.String()
}
