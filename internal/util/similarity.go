package util

import "strings"

// TokenSimilarity computes the Jaccard similarity of the lowercase token
// sets of two strings, 0-1. Deterministic and cheap; used for context
// dedupe and near-duplicate claim grouping with tunable thresholds.
func TokenSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// tokenSet splits a string into a set of normalized tokens
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if len(tok) > 1 {
			set[tok] = true
		}
	}
	return set
}
