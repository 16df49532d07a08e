package persona

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestNormalizeGender_Deterministic(t *testing.T) {
	rng := testRNG()

	cases := map[string]Gender{
		"Men":          GenderMen,
		"men":          GenderMen,
		"  MEN  ":      GenderMen,
		"young men":    GenderMen,
		"Women":        GenderWomen,
		"women":        GenderWomen,
		"WoMeN":        GenderWomen,
		"mostly women": GenderWomen,
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeGender(input, rng), "input %q", input)
	}
}

func TestNormalizeGender_WomenWinsOverMen(t *testing.T) {
	// "women" contains "men"; the women check must run first.
	rng := testRNG()
	assert.Equal(t, GenderWomen, NormalizeGender("men and women", rng))
}

func TestNormalizeGender_FallbackAlwaysValid(t *testing.T) {
	rng := testRNG()
	inputs := []string{"both", "", "everyone", "nonbinary", "???"}
	for _, input := range inputs {
		got := NormalizeGender(input, rng)
		assert.Contains(t, []Gender{GenderMen, GenderWomen}, got, "input %q", input)
	}
}

func TestNormalizeGender_FixedPoint(t *testing.T) {
	rng := testRNG()
	for _, g := range []Gender{GenderMen, GenderWomen} {
		assert.Equal(t, g, NormalizeGender(string(g), rng))
	}
}

func TestEnsureTwoInterests_Truncates(t *testing.T) {
	got := EnsureTwoInterests([]string{"Hiking", "Cooking", "Chess"}, "coffee")
	assert.Equal(t, [2]string{"Hiking", "Cooking"}, got)
}

func TestEnsureTwoInterests_AssociationTable(t *testing.T) {
	cases := []struct {
		interest string
		want     string
	}{
		{"Fitness training", "Nutrition"},
		{"health tracking", "Nutrition"},
		{"Tech reviews", "Innovation"},
		{"cool gadgets", "Innovation"},
		{"Fashion week", "Design"},
		{"street style", "Design"},
		{"Food blogging", "Restaurants"},
		{"home cooking", "Restaurants"},
		{"Travel vlogs", "Photography"},
		{"adventure sports", "Photography"},
	}
	for _, tc := range cases {
		got := EnsureTwoInterests([]string{tc.interest}, "coffee")
		assert.Equal(t, tc.interest, got[0])
		assert.Equal(t, tc.want, got[1], "interest %q", tc.interest)
	}
}

func TestEnsureTwoInterests_AssociationFallback(t *testing.T) {
	got := EnsureTwoInterests([]string{"Beekeeping"}, "artisan honey")
	assert.Equal(t, [2]string{"Beekeeping", "artisan honey discovery"}, got)
}

func TestEnsureTwoInterests_EmptyInput(t *testing.T) {
	got := EnsureTwoInterests(nil, "running shoes")
	assert.Equal(t, "running shoes", got[0])
	assert.Equal(t, "running shoes trends", got[1])
}

func TestEnsureTwoInterests_FiltersBlanks(t *testing.T) {
	got := EnsureTwoInterests([]string{"", "  ", "Surfing"}, "wetsuits")
	assert.Equal(t, "Surfing", got[0])
	assert.NotEmpty(t, got[1])
}

func TestEnsureTwoInterests_AlwaysTwoNonEmpty(t *testing.T) {
	inputs := [][]string{
		nil,
		{},
		{""},
		{"one"},
		{"one", "two"},
		{"one", "two", "three", "four"},
		{" ", "", "solo"},
	}
	for _, raw := range inputs {
		got := EnsureTwoInterests(raw, "gear")
		assert.NotEmpty(t, got[0], "input %v", raw)
		assert.NotEmpty(t, got[1], "input %v", raw)
	}
}

func TestAssignRace_Distribution(t *testing.T) {
	rng := testRNG()
	counts := make(map[Race]int)
	const n = 10000
	for i := 0; i < n; i++ {
		counts[AssignRace(rng)]++
	}

	// All six tags must be reachable.
	assert.Len(t, counts, 6)

	// Spot-check the weighted shape: White (3/10) should dominate the
	// 1/10 tags by a wide margin across 10k draws.
	assert.Greater(t, counts[RaceWhite], counts[RaceAsian])
	assert.Greater(t, counts[RaceWhite], counts[RaceBiracial])
	assert.InDelta(t, 0.3, float64(counts[RaceWhite])/n, 0.05)
	assert.InDelta(t, 0.2, float64(counts[RaceLatino])/n, 0.05)
	assert.InDelta(t, 0.1, float64(counts[RaceIndianAmerican])/n, 0.05)
}

func TestEnhanceTitle_KeepsMatchingTitle(t *testing.T) {
	rng := testRNG()
	got := EnhanceTitle("The Fitness Fanatic", [2]string{"fitness", "Nutrition"}, rng)
	assert.Equal(t, "The Fitness Fanatic", got)
}

func TestEnhanceTitle_SynthesizesWhenMissing(t *testing.T) {
	rng := testRNG()
	got := EnhanceTitle("Generic Person", [2]string{"Craft Beer", "Restaurants"}, rng)
	parts := strings.Fields(got)
	require.Len(t, parts, 3)
	assert.Equal(t, "Craft", parts[0])
	assert.Contains(t, titleAdjectives, parts[1])
	assert.Contains(t, titleNouns, parts[2])
}

func TestNormalize_IDFallback(t *testing.T) {
	rng := testRNG()
	raw := RawPersona{Gender: "women", AgeMin: 25, AgeMax: 34, Interests: []string{"Yoga", "Tea"}}

	p, err := Normalize(raw, 3, "wellness", rng)
	require.NoError(t, err)
	assert.Equal(t, "persona-3", p.ID)

	raw.ID = "upstream-77"
	p, err = Normalize(raw, 3, "wellness", rng)
	require.NoError(t, err)
	assert.Equal(t, "upstream-77", p.ID)
}

func TestNormalize_AgeBandInvariant(t *testing.T) {
	rng := testRNG()

	_, err := Normalize(RawPersona{Gender: "men", AgeMin: 40, AgeMax: 25}, 0, "x", rng)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	_, err = Normalize(RawPersona{Gender: "men", AgeMin: -1, AgeMax: 25}, 0, "x", rng)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	p, err := Normalize(RawPersona{Gender: "men", AgeMin: 25, AgeMax: 25}, 0, "x", rng)
	require.NoError(t, err)
	assert.Equal(t, 25, p.AgeMin)
	assert.Equal(t, 25, p.AgeMax)
}

func TestNormalize_RaceImmutable(t *testing.T) {
	rng := testRNG()
	raw := RawPersona{Gender: "women", AgeMin: 30, AgeMax: 40, Interests: []string{"Art"}, Race: "Latino"}

	p, err := Normalize(raw, 0, "galleries", rng)
	require.NoError(t, err)
	assert.Equal(t, RaceLatino, p.Race)

	// A second pass over the already-tagged record must not reroll.
	raw2 := RawPersona{
		ID: p.ID, Title: p.Title, Gender: string(p.Gender),
		AgeMin: p.AgeMin, AgeMax: p.AgeMax,
		Interests: p.Interests[:], Race: string(p.Race),
	}
	p2, err := Normalize(raw2, 0, "galleries", rng)
	require.NoError(t, err)
	assert.Equal(t, p.Race, p2.Race)
}

func TestNormalize_AssignsRaceOnlyWhenAbsent(t *testing.T) {
	rng := testRNG()
	p, err := Normalize(RawPersona{Gender: "men", AgeMin: 20, AgeMax: 30}, 0, "games", rng)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Race)

	// Unknown upstream tags are treated as absent and rerolled onto the
	// fixed vocabulary.
	p, err = Normalize(RawPersona{Gender: "men", AgeMin: 20, AgeMax: 30, Race: "martian"}, 0, "games", rng)
	require.NoError(t, err)
	_, ok := validRace(string(p.Race))
	assert.True(t, ok)
}
