package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"parenthesized year", "The Show (2020)", "the show"},
		{"bracketed year", "The Show [2020]", "the show"},
		{"bare trailing year", "The Show 2020", "the show"},
		{"lowercase", "the show 2020", "the show"},
		{"punctuation", "The Show: Part 2", "the show part 2"},
		{"whitespace", "  The   Show\tPart 2 ", "the show part 2"},
		{"accents", "Amélie", "amelie"},
		{"year only title is kept", "1923", "1923"},
		{"apostrophe", "Grey's Anatomy", "greys anatomy"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("The Show (2020)", "The Show 2020"))
	assert.True(t, SameName("The Show 2020", "the show 2020"))
	assert.True(t, SameName("The Show: Part 2", "The Show Part 2"))
	assert.False(t, SameName("The Show", "The Other Show"))
	assert.False(t, SameName("", ""), "empty names never match")
	assert.False(t, SameName("!!!", "???"), "names that normalize to empty never match")
}

func TestClosestNames(t *testing.T) {
	candidates := []string{"Breaking Bad", "The Office", "Better Call Saul", "Braking Bad"}

	got := ClosestNames("Breaking Bad (2008)", candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Breaking Bad", got[0])
	assert.Equal(t, "Braking Bad", got[1])

	assert.Empty(t, ClosestNames("x", candidates, 0))
	assert.Len(t, ClosestNames("x", candidates, 10), len(candidates))
}

func TestExtractYear(t *testing.T) {
	title, year := ExtractYear("Inception (2010)")
	assert.Equal(t, "Inception", title)
	assert.Equal(t, 2010, year)

	title, year = ExtractYear("Inception [2010]")
	assert.Equal(t, "Inception", title)
	assert.Equal(t, 2010, year)

	title, year = ExtractYear("Blade Runner 2049")
	assert.Equal(t, "Blade Runner 2049", title)
	assert.Equal(t, 0, year)

	title, year = ExtractYear("(1999)")
	assert.Equal(t, "(1999)", title)
	assert.Equal(t, 0, year)
}

func TestLoadProtectedTitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protected.txt")
	content := "# keep these forever\nThe Wire\n\n  Firefly (2002)  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	protected, err := LoadProtectedTitles(path)
	require.NoError(t, err)
	assert.Equal(t, 2, protected.Len())

	ok, entry := protected.IsProtected("the wire")
	assert.True(t, ok)
	assert.Equal(t, "The Wire", entry)

	ok, _ = protected.IsProtected("Firefly")
	assert.True(t, ok)

	ok, _ = protected.IsProtected("The Wired")
	assert.False(t, ok, "protection is exact on normalized names, not substring")
}

func TestLoadProtectedTitles_MissingFile(t *testing.T) {
	protected, err := LoadProtectedTitles(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, protected.Len())

	ok, _ := protected.IsProtected("Anything")
	assert.False(t, ok)
}
