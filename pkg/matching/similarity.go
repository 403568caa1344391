package matching

import "strings"

// NameSimilarity scores how alike two normalized surface forms are, on
// [0, 1]. The ladder runs from cheapest comparison to most expensive and
// returns at the first rung that fires.
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	// Same name once legal-form suffixes are dropped.
	if NormalizeName(a) == NormalizeName(b) {
		return 0.98
	}

	// Initialism of the longer form ("petroleos de venezuela sa" -> "pdvsa").
	if Acronym(a) == b || Acronym(b) == a {
		return 0.95
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	if strings.HasPrefix(longer, shorter) || strings.HasSuffix(longer, shorter) {
		ratio := float64(len(shorter)) / float64(len(longer))
		return 0.7 + (ratio * 0.2)
	}

	if len(shorter) >= 4 && strings.Contains(longer, shorter) {
		ratio := float64(len(shorter)) / float64(len(longer))
		return 0.5 + (ratio * 0.3)
	}

	// Edit distance, capped at half the longer length so hopeless pairs
	// exit early.
	maxDist := len(longer) / 2
	if dist := LevenshteinWithThreshold(a, b, maxDist); dist <= maxDist {
		sim := 1.0 - float64(dist)/float64(len(longer))
		if sim >= 0.5 {
			return sim
		}
	}

	// Token overlap for multi-word forms with reordered or partial tokens.
	overlap := tokenOverlap(a, b)
	if overlap >= 0.5 {
		return 0.4 + overlap*0.35
	}

	return 0
}

// tokenOverlap is the Jaccard coefficient over the token sets of two
// normalized forms.
func tokenOverlap(a, b string) float64 {
	aTokens := Tokens(a)
	bTokens := Tokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	set := make(map[string]bool, len(aTokens))
	for _, tok := range aTokens {
		set[tok] = true
	}

	common := 0
	union := len(set)
	for _, tok := range bTokens {
		if set[tok] {
			common++
			set[tok] = false // count each shared token once
		} else {
			union++
		}
	}

	return float64(common) / float64(union)
}
