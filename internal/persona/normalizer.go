package persona

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrMalformedResponse indicates an upstream persona record that violates a
// structural invariant (currently: an inverted or negative age band).
var ErrMalformedResponse = errors.New("malformed persona record")

// interestAssociations maps substrings of a single known interest to a
// companion topic, used when the upstream record supplies only one interest.
var interestAssociations = []struct {
	keywords []string
	topic    string
}{
	{[]string{"fitness", "health"}, "Nutrition"},
	{[]string{"tech", "gadget"}, "Innovation"},
	{[]string{"fashion", "style"}, "Design"},
	{[]string{"food", "cooking"}, "Restaurants"},
	{[]string{"travel", "adventure"}, "Photography"},
}

// Word lists for title embellishment. Purely cosmetic.
var (
	titleAdjectives = []string{
		"Savvy", "Curious", "Modern", "Urban", "Everyday",
		"Passionate", "Practical", "Trendy", "Mindful", "Bold",
	}
	titleNouns = []string{
		"Enthusiast", "Explorer", "Shopper", "Professional", "Creator",
		"Seeker", "Devotee", "Planner", "Maven", "Optimist",
	}
)

// NormalizeGender maps a free-text gender value onto the canonical tags.
// "women" wins over "men" because the former contains the latter as a
// substring. Unrecognized values (including "both") resolve to a uniform
// random pick; that fallback is intentional, not an error.
func NormalizeGender(raw string, rng *rand.Rand) Gender {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(lower, "women") {
		return GenderWomen
	}
	if strings.Contains(lower, "men") {
		return GenderMen
	}
	if rng.Intn(2) == 0 {
		return GenderMen
	}
	return GenderWomen
}

// EnsureTwoInterests guarantees exactly two non-empty interests.
// More than two are truncated to the first two; a single interest gets a
// companion from the association table; zero interests fall back to two
// generics derived from the offering context.
func EnsureTwoInterests(raw []string, offering string) [2]string {
	cleaned := make([]string, 0, len(raw))
	for _, in := range raw {
		if trimmed := strings.TrimSpace(in); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	offering = strings.TrimSpace(offering)
	if offering == "" {
		offering = "Lifestyle"
	}

	switch {
	case len(cleaned) >= 2:
		return [2]string{cleaned[0], cleaned[1]}
	case len(cleaned) == 1:
		return [2]string{cleaned[0], associateInterest(cleaned[0], offering)}
	default:
		return [2]string{offering, fmt.Sprintf("%s trends", offering)}
	}
}

// associateInterest derives a companion topic for a lone interest.
func associateInterest(interest, offering string) string {
	lower := strings.ToLower(interest)
	for _, assoc := range interestAssociations {
		for _, kw := range assoc.keywords {
			if strings.Contains(lower, kw) {
				return assoc.topic
			}
		}
	}
	return fmt.Sprintf("%s discovery", offering)
}

// AssignRace draws one race tag from the fixed weighted distribution.
// Callers must only invoke this when the persona has no race yet; an
// assigned race is never replaced.
func AssignRace(rng *rand.Rand) Race {
	total := 0
	for _, rw := range raceWeights {
		total += rw.weight
	}
	pick := rng.Intn(total)
	for _, rw := range raceWeights {
		pick -= rw.weight
		if pick < 0 {
			return rw.race
		}
	}
	return raceWeights[0].race // unreachable
}

// EnhanceTitle makes sure the title references the primary interest.
// Titles that already mention it pass through untouched; otherwise a short
// synthetic title is built from the interest's first word and the fixed
// adjective/noun lists.
func EnhanceTitle(title string, interests [2]string, rng *rand.Rand) string {
	primary := interests[0]
	if primary == "" {
		return title
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(primary)) {
		return title
	}
	firstWord := strings.Fields(primary)[0]
	adjective := titleAdjectives[rng.Intn(len(titleAdjectives))]
	noun := titleNouns[rng.Intn(len(titleNouns))]
	return fmt.Sprintf("%s %s %s", firstWord, adjective, noun)
}

// validRace reports whether an upstream race value matches a known tag.
func validRace(raw string) (Race, bool) {
	switch Race(strings.TrimSpace(raw)) {
	case RaceWhite, RaceLatino, RaceBlack, RaceAsian, RaceIndianAmerican, RaceBiracial:
		return Race(strings.TrimSpace(raw)), true
	}
	return "", false
}

// Normalize sanitizes one raw upstream record into a Persona.
//
// index is the zero-based slot the persona will occupy; it seeds the
// fallback ID when the collaborator supplies none. The age band is
// validated rather than repaired: an inverted or negative band is a
// collaborator bug and surfaces as ErrMalformedResponse.
//
// Race is assigned only when absent. Calling Normalize again on a record
// that already carries a race tag never changes it.
func Normalize(raw RawPersona, index int, offering string, rng *rand.Rand) (Persona, error) {
	if raw.AgeMin < 0 || raw.AgeMax < 0 || raw.AgeMin > raw.AgeMax {
		return Persona{}, fmt.Errorf("%w: age band %d-%d", ErrMalformedResponse, raw.AgeMin, raw.AgeMax)
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = fmt.Sprintf("persona-%d", index)
	}

	race, ok := validRace(raw.Race)
	if !ok {
		race = AssignRace(rng)
	}

	interests := EnsureTwoInterests(raw.Interests, offering)

	return Persona{
		ID:        id,
		Title:     EnhanceTitle(strings.TrimSpace(raw.Title), interests, rng),
		Gender:    NormalizeGender(raw.Gender, rng),
		AgeMin:    raw.AgeMin,
		AgeMax:    raw.AgeMax,
		Interests: interests,
		Race:      race,
		Tagline:   strings.TrimSpace(raw.Tagline),
	}, nil
}
