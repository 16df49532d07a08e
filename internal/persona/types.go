// Package persona defines the synthetic audience member model and the
// demographic normalizer that sanitizes AI-returned persona records.
//
// Personas arrive from the text-generation collaborator with loosely typed
// fields (free-text gender, any number of interests, ages in either order).
// Everything downstream of this package works with fully normalized records:
// canonical gender, exactly two interests, a race tag, a valid age band.
package persona

// Gender is the canonical gender tag. Free-text upstream values are
// normalized to one of these two values; there is no unknown state.
type Gender string

const (
	GenderMen   Gender = "Men"
	GenderWomen Gender = "Women"
)

// Race is a fixed demographic tag assigned once per persona.
type Race string

const (
	RaceWhite          Race = "White"
	RaceLatino         Race = "Latino"
	RaceBlack          Race = "Black"
	RaceAsian          Race = "Asian"
	RaceIndianAmerican Race = "Indian-American"
	RaceBiracial       Race = "Biracial"
)

// raceWeights is the fixed sampling distribution for AssignRace,
// in tenths: 3/10 White, 2/10 Latino, 2/10 Black, 1/10 each for the rest.
var raceWeights = []struct {
	race   Race
	weight int
}{
	{RaceWhite, 3},
	{RaceLatino, 2},
	{RaceBlack, 2},
	{RaceAsian, 1},
	{RaceIndianAmerican, 1},
	{RaceBiracial, 1},
}

// Persona is one fully normalized synthetic audience member.
type Persona struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Gender      Gender    `json:"gender"`
	AgeMin      int       `json:"age_min"`
	AgeMax      int       `json:"age_max"`
	Interests   [2]string `json:"interests"`
	Race        Race      `json:"race"`
	Tagline     string    `json:"tagline,omitempty"`
	PortraitURL string    `json:"portrait_url,omitempty"`
}

// RawPersona is the loosely typed record returned by the text-generation
// collaborator before normalization. Gender and interests are free-form,
// age fields may arrive in either order, and ID/Race/Tagline are optional.
type RawPersona struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Gender    string   `json:"gender"`
	AgeMin    int      `json:"age_min"`
	AgeMax    int      `json:"age_max"`
	Interests []string `json:"interests"`
	Race      string   `json:"race,omitempty"`
	Tagline   string   `json:"tagline,omitempty"`
}
