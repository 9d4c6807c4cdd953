/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package vocab

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Similarity scores how close two words are, 0 (unrelated) to 1 (equal).
// Pluggable so the algorithm and the cutoff can change independently of
// call sites.
type Similarity func(a, b string) float64

// LevenshteinSimilarity is the default similarity: edit distance
// normalized by the longer word's rune length.
func LevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

// Corrector rewrites transcript tokens against the validated vocabulary
// before persistence. Correction is never retroactive over history.
type Corrector struct {
	sim           Similarity
	minSimilarity float64
}

// NewCorrector creates a corrector. A nil similarity falls back to
// LevenshteinSimilarity.
func NewCorrector(sim Similarity, minSimilarity float64) *Corrector {
	if sim == nil {
		sim = LevenshteinSimilarity
	}
	return &Corrector{
		sim:           sim,
		minSimilarity: minSimilarity,
	}
}

// Correct replaces each whitespace token with its closest vocabulary entry
// when the similarity reaches the cutoff. Ties resolve to the
// lexicographically first vocabulary word, so behavior is reproducible.
func (c *Corrector) Correct(text string, vocabulary []string) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(vocabulary) == 0 {
		return text
	}

	sorted := make([]string, len(vocabulary))
	copy(sorted, vocabulary)
	sort.Strings(sorted)

	for i, token := range tokens {
		lower := strings.ToLower(token)

		best := -1.0
		bestWord := ""
		for _, candidate := range sorted {
			score := c.sim(lower, strings.ToLower(candidate))
			if score > best {
				best = score
				bestWord = candidate
			}
		}

		if best >= c.minSimilarity {
			tokens[i] = bestWord
		}
	}

	return strings.Join(tokens, " ")
}
