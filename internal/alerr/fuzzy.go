package alerr

import "fmt"

// editDistance returns the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	row := make([]int, len(b)+1)
	next := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		next[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next[j] = min(next[j-1]+1, row[j]+1, row[j-1]+cost)
		}
		row, next = next, row
	}

	return row[len(b)]
}

// FindClosestMatch returns the candidate nearest to input within an edit distance of 3.
func FindClosestMatch(input string, candidates []string) (string, bool) {
	const maxDistance = 3

	best := ""
	bestDist := maxDistance + 1
	for _, c := range candidates {
		if d := editDistance(input, c); d < bestDist {
			bestDist = d
			best = c
		}
	}

	return best, bestDist <= maxDistance
}

// SuggestSimilar returns "did you mean 'X'?" when a close candidate exists.
func SuggestSimilar(input string, candidates []string) string {
	if match, ok := FindClosestMatch(input, candidates); ok {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return ""
}
