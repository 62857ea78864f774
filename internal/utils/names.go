package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// (2020) or [2020], anywhere in the name
	yearAnnotationRegex = regexp.MustCompile(`[\(\[]\s*(?:19|20)\d{2}\s*[\)\]]`)
	// bare year at the end of a longer name: "The Show 2020"
	trailingYearRegex   = regexp.MustCompile(`(\S)\s+(?:19|20)\d{2}\s*$`)
	nonWordRegex        = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	yearRegex           = regexp.MustCompile(`[\(\[]\s*(19\d{2}|20\d{2})\s*[\)\]]\s*$`)

	folder = cases.Fold()
)

// NormalizeName canonicalizes a display name for degraded name matching.
// Year annotations, punctuation, accents and extra whitespace are removed and the
// result is case folded, so "The Show (2020)", "The Show 2020" and "the show 2020"
// all compare equal.
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	s = yearAnnotationRegex.ReplaceAllString(s, " ")
	s = trailingYearRegex.ReplaceAllString(s, "$1")
	s = removeAccents(s)
	s = nonWordRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

// SameName reports whether two names normalize to the same non-empty string
func SameName(a, b string) bool {
	na := NormalizeName(a)
	return na != "" && na == NormalizeName(b)
}

// ClosestNames returns up to limit candidates ordered by edit distance to name.
// Only used to make name-match misses easier to diagnose in logs.
func ClosestNames(name string, candidates []string, limit int) []string {
	target := NormalizeName(name)
	type scored struct {
		name     string
		distance int
	}

	best := make([]scored, 0, limit+1)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(target, NormalizeName(c))
		i := len(best)
		for i > 0 && best[i-1].distance > d {
			i--
		}
		if i >= limit {
			continue
		}
		best = append(best, scored{})
		copy(best[i+1:], best[i:])
		best[i] = scored{name: c, distance: d}
		if len(best) > limit {
			best = best[:limit]
		}
	}

	names := make([]string, len(best))
	for i, s := range best {
		names[i] = s.name
	}
	return names
}

// ExtractYear extracts a trailing bracketed year from a title.
// Returns the title without the year, or the unchanged title and 0 if none is found.
// Matches: "Movie (2009)", "Movie [2009]".
func ExtractYear(title string) (string, int) {
	loc := yearRegex.FindStringSubmatchIndex(title)
	if loc == nil || loc[0] == 0 {
		return title, 0
	}
	year, err := strconv.Atoi(title[loc[2]:loc[3]])
	if err != nil {
		return title, 0
	}
	return strings.TrimSpace(title[:loc[0]]), year
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
