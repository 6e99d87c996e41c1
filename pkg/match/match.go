// Package match provides catalog-name normalization and fuzzy matching for
// status filtering.
package match

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName prepares a catalog or collection name for comparison:
// lowercase, accents stripped, punctuation dropped, whitespace collapsed.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = removeAccents(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ':':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Similarity returns the Jaro-Winkler similarity of two names after
// normalization, in [0, 1].
func Similarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return float64(edlib.JaroWinklerSimilarity(na, nb))
}

// MatchThreshold is the minimum similarity for Matches to accept a candidate.
const MatchThreshold = 0.82

// Matches reports whether candidate is close enough to the query, either by
// normalized substring containment or by similarity above MatchThreshold.
func Matches(query, candidate string) bool {
	nq, nc := NormalizeName(query), NormalizeName(candidate)
	if nq == "" {
		return true
	}
	if strings.Contains(nc, nq) {
		return true
	}
	return Similarity(query, candidate) >= MatchThreshold
}
