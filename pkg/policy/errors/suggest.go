package errors

import (
	"fmt"
	"strings"
)

// SuggestValue proposes the closest allowed value for an unknown one.
func SuggestValue(unknown string, allowed []string) string {
	if len(allowed) == 0 {
		return ""
	}
	best, bestDist := "", 1<<30
	for _, a := range allowed {
		if d := levenshtein(strings.ToLower(unknown), a); d < bestDist {
			best, bestDist = a, d
		}
	}
	if bestDist <= 3 {
		return fmt.Sprintf("did you mean %q?", best)
	}
	return "allowed values: " + strings.Join(allowed, ", ")
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
