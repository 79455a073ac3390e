package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_IdenticalStrings(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Acme Plumbing", "Acme Plumbing"))
	assert.Equal(t, 1.0, Similarity("ACME PLUMBING", "acme plumbing"))
}

func TestSimilarity_EmptyStrings(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "Acme"))
	assert.Equal(t, 0.0, Similarity("Acme", ""))
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilarity_CloseStrings(t *testing.T) {
	sim := Similarity("millersplumbing", "Miller's Plumbing")
	assert.Greater(t, sim, 0.7, "domain label should score high against the business name")

	sim = Similarity("Acme Plumbing", "Bob's Roofing")
	assert.Less(t, sim, 0.5, "unrelated names should score low")
}

func TestSimilarity_PunctuationInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Nickel Bros.", "nickel bros"))
}

func TestIsCompanyName_ExactMatch(t *testing.T) {
	m := NewMatcher(nil)
	assert.True(t, m.IsCompanyName("Nickel Bros", "Nickel Bros"))
	assert.True(t, m.IsCompanyName("NICKEL BROS", "nickel bros"))
}

func TestIsCompanyName_SubstringContainment(t *testing.T) {
	m := NewMatcher(nil)
	assert.True(t, m.IsCompanyName("Nickel Bros House Moving", "Nickel Bros"))
	assert.True(t, m.IsCompanyName("Nickel", "Nickel Bros"), "candidate contained in company name")
}

func TestIsCompanyName_LegalSuffixes(t *testing.T) {
	m := NewMatcher(nil)
	cases := []string{
		"Evergreen LLC",
		"Summit Roofing Inc",
		"Cascade Construction",
		"Hilltop Services",
		"Denali Bros.",
	}
	for _, name := range cases {
		assert.True(t, m.IsCompanyName(name, "Some Other Business"), "suffix should mark %q as a company", name)
	}
}

func TestIsCompanyName_IndustrySuffixes(t *testing.T) {
	m := NewMatcher([]string{"towing", "excavating"})
	assert.True(t, m.IsCompanyName("Rainier Towing", "Unrelated Co Name"))
	assert.True(t, m.IsCompanyName("Blue Excavating", "Unrelated Co Name"))
}

func TestIsCompanyName_TokenOverlap(t *testing.T) {
	m := NewMatcher(nil)
	// 2 of 2 company tokens present in the candidate, no substring match.
	assert.True(t, m.IsCompanyName("Pacific Coast Movers", "Pacific Movers"))
}

func TestIsCompanyName_RealPersonPasses(t *testing.T) {
	m := NewMatcher(nil)
	assert.False(t, m.IsCompanyName("Kristen Miller", "Miller's Plumbing"))
	assert.False(t, m.IsCompanyName("Jane Smith", "Nickel Bros"))
	assert.False(t, m.IsCompanyName("Bob Johnson", "Johnson & Johnson Heating"),
		"shared surname alone must not reject a person")
}

func TestIsCompanyName_EmptyInputs(t *testing.T) {
	m := NewMatcher(nil)
	assert.False(t, m.IsCompanyName("", "Acme"))
	assert.False(t, m.IsCompanyName("Acme", ""))
}
