package dedupe

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityScorer reports how alike two strings are on a 0..1 scale,
// where 1 means identical.
type SimilarityScorer interface {
	Score(a, b string) float64
}

// LevenshteinScorer scores strings by normalized edit distance.
type LevenshteinScorer struct{}

// Score implements SimilarityScorer. Two empty strings score 0, not 1:
// an article with no content should never match another empty one.
func (LevenshteinScorer) Score(a, b string) float64 {
	longer := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longer {
		longer = n
	}
	if longer == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longer)
}
