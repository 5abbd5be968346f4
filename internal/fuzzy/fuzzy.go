// Package fuzzy scores string similarity on a 0-100 scale.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Ratio is the normalized edit similarity of a and b, 0..100.
func Ratio(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	score := 100 * (longest - d) / longest
	if score < 0 {
		return 0
	}
	return score
}

// TokenSortRatio compares a and b after lowercasing, dropping punctuation
// and sorting their tokens, so word order does not matter.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// Scorer is a similarity function.
type Scorer func(a, b string) int

// Match is the best candidate found by ExtractOne.
type Match struct {
	Choice string
	Score  int
	Index  int
}

// ExtractOne returns the highest scoring choice. Ties keep the earliest.
func ExtractOne(query string, choices []string, scorer Scorer) (Match, bool) {
	best := Match{Index: -1, Score: -1}
	for i, c := range choices {
		if s := scorer(query, c); s > best.Score {
			best = Match{Choice: c, Score: s, Index: i}
		}
	}
	return best, best.Index >= 0
}
