package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"bolt", "", 4},
		{"kitten", "sitting", 3},
		{"lightning bolt", "lightnin bolt", 1},
		{"æther vial", "aether vial", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)), "%q vs %q", tt.a, tt.b)
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score("sol ring", "sol ring"))
	assert.Equal(t, 0, Score("", "sol ring"))
	assert.GreaterOrEqual(t, Score("sol", "sol ring"), 85)
	assert.GreaterOrEqual(t, Score("ring", "sol ring"), 80)
	assert.Less(t, Score("ring", "sol ring"), Score("sol", "sol ring"))
	assert.Greater(t, Score("lightnin bolt", "lightning bolt"), Score("lightnin bolt", "lightning helix"))
}

func TestRank(t *testing.T) {
	candidates := []string{"Lightning Helix", "Lightning Bolt", "Chain Lightning", "Counterspell"}

	matches := Rank("Lightnig  Bolt", candidates, DefaultOptions())
	require.NotEmpty(t, matches)
	assert.Equal(t, "Lightning Bolt", matches[0].Name)
	assert.Equal(t, 1, matches[0].Index)

	for _, m := range matches {
		assert.NotEqual(t, "Counterspell", m.Name)
	}
}

func TestRank_StableTiesAndLimit(t *testing.T) {
	matches := Rank("x", []string{"ab", "cd", "ef"}, Options{MinScore: 0, MaxResults: 2})
	require.Len(t, matches, 2)
	assert.Equal(t, "ab", matches[0].Name)
	assert.Equal(t, "cd", matches[1].Name)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Lightning   Bolt ", "lightning bolt"},
		{"Jötun Grunt", "jotun grunt"},
		{"Lim-Dûl the Necromancer", "lim-dul the necromancer"},
		{"Æther Vial", "æther vial"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), tt.in)
	}
}

func TestRank_IgnoresAccents(t *testing.T) {
	matches := Rank("Jotun Grunt", []string{"Jötun Owl Keeper", "Jötun Grunt"}, DefaultOptions())
	require.NotEmpty(t, matches)
	assert.Equal(t, "Jötun Grunt", matches[0].Name)
	assert.Equal(t, 100, matches[0].Score)
}
