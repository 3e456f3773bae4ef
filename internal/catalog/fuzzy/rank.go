// Package fuzzy ranks candidate card names against a misspelled query.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match is a ranked candidate.
type Match struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Index int    `json:"-"`
}

// Options configures ranking.
type Options struct {
	// MaxResults limits the number of matches returned (0 = unlimited)
	MaxResults int
	// MinScore sets minimum score threshold (0-100)
	MinScore int
}

// DefaultOptions returns the thresholds used for "did you mean" suggestions.
func DefaultOptions() Options {
	return Options{
		MaxResults: 5,
		MinScore:   40,
	}
}

// Rank scores every candidate against query, ignoring case and accents, and returns
// matches sorted by score (highest first) with ties kept in input order.
func Rank(query string, candidates []string, opts Options) []Match {
	query = normalize(query)

	matches := make([]Match, 0, len(candidates))
	for i, candidate := range candidates {
		score := Score(query, normalize(candidate))
		if score >= opts.MinScore {
			matches = append(matches, Match{Name: candidate, Score: score, Index: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if opts.MaxResults > 0 && len(matches) > opts.MaxResults {
		matches = matches[:opts.MaxResults]
	}
	return matches
}

// Score is the similarity of two normalized strings, 0-100.
func Score(query, target string) int {
	if query == target {
		return 100
	}
	if query == "" || target == "" {
		return 0
	}

	q, t := []rune(query), []rune(target)

	if strings.HasPrefix(target, query) {
		return 85 + len(q)*14/len(t)
	}
	if strings.Contains(target, query) {
		return 80 + len(q)*19/len(t)
	}

	distance := levenshtein(q, t)
	return 100 - distance*100/max(len(q), len(t))
}

// normalize lowercases s, collapses whitespace and strips combining marks,
// so "Jötun Grunt" and "jotun  grunt" compare equal.
func normalize(s string) string {
	// A chained transformer keeps state, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// levenshtein is the edit distance between a and b using two rows.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
