// Package classifier labels ledger rows by matching their descriptions
// against the learned knowledge base, and grows that knowledge base from
// manual corrections.
package classifier

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DefaultMinScore is the confidence floor below which a candidate match
// is discarded and the row stays unclassified.
const DefaultMinScore = 0.72

// Scorer rates how well a knowledge pattern matches a transaction
// description, in [0, 1]. Higher is better.
type Scorer interface {
	Score(description, pattern string) float64
}

// MatchScorer is the default scorer. An exact case-insensitive
// containment of the pattern in the description scores 1.0; otherwise it
// falls back to the best Levenshtein similarity between the pattern and
// any description token, which absorbs minor misspellings in bank memo
// text ("AMAZ0N", "ZELE") without matching unrelated rows.
type MatchScorer struct{}

// NewMatchScorer creates the default scorer.
func NewMatchScorer() *MatchScorer {
	return &MatchScorer{}
}

// Score implements Scorer.
func (m *MatchScorer) Score(description, pattern string) float64 {
	desc := strings.ToLower(strings.TrimSpace(description))
	pat := strings.ToLower(strings.TrimSpace(pattern))
	if desc == "" || pat == "" {
		return 0
	}

	if strings.Contains(desc, pat) {
		return 1.0
	}

	best := similarity(desc, pat)
	for _, token := range strings.Fields(desc) {
		if s := similarity(token, pat); s > best {
			best = s
		}
	}
	return best
}

// similarity is 1 minus the normalized Levenshtein edit distance.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1.0 - float64(distance)/float64(longest)
}
