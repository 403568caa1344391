package matching

// LevenshteinWithThreshold calculates the edit distance between two strings
// with early exit once the distance cannot stay within the threshold. Uses
// the single-row algorithm for O(min(n,m)) space.
//
// Returns threshold+1 when the actual distance exceeds the threshold.
func LevenshteinWithThreshold(a, b string, threshold int) int {
	lenDiff := len(a) - len(b)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return threshold + 1
	}

	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Keep a as the shorter string for space efficiency.
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(b); i++ {
		curr := make([]int, len(a)+1)
		curr[0] = i
		minInRow := curr[0]

		for j := 1; j <= len(a); j++ {
			cost := 1
			if b[i-1] == a[j-1] {
				cost = 0
			}

			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)

			if curr[j] < minInRow {
				minInRow = curr[j]
			}
		}

		// Every cell in this row exceeds the threshold; the final distance
		// can only grow from here.
		if minInRow > threshold {
			return threshold + 1
		}

		prev = curr
	}

	return prev[len(a)]
}

// Levenshtein calculates the exact edit distance between two strings.
func Levenshtein(a, b string) int {
	longest := max(len(a), len(b))
	return LevenshteinWithThreshold(a, b, longest)
}

// EditSimilarity maps edit distance onto [0, 1], where 1 means equal.
func EditSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	longest := max(len(a), len(b))
	if longest == 0 {
		return 1.0
	}

	dist := Levenshtein(a, b)
	return 1.0 - float64(dist)/float64(longest)
}
