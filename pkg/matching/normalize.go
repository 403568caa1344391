// Package matching implements the candidate generation and scoring internals
// of entity resolution: name normalization, edit-distance similarity, blocked
// candidate indexing and log-odds field scoring.
package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// corporateSuffixes are legal-form tokens dropped during normalization so
// "Petróleos de Venezuela, S.A." and "Petroleos de Venezuela" fold to the
// same form. Compared against already-lowercased, punctuation-free tokens.
var corporateSuffixes = map[string]bool{
	"sa":           true,
	"ca":           true,
	"inc":          true,
	"corp":         true,
	"co":           true,
	"ltd":          true,
	"llc":          true,
	"plc":          true,
	"gmbh":         true,
	"company":      true,
	"corporation":  true,
	"incorporated": true,
	"limited":      true,
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a surface form for lookup and comparison: lowercase,
// accent-fold, strip punctuation, collapse whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '/':
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// Punctuation dropped. "S.A." collapses to "sa".
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeName normalizes a surface form and drops trailing corporate
// suffix tokens. The leading token is never treated as a suffix.
func NormalizeName(s string) string {
	tokens := strings.Fields(Normalize(s))
	if len(tokens) == 0 {
		return ""
	}

	end := len(tokens)
	for end > 1 && corporateSuffixes[tokens[end-1]] {
		end--
	}
	return strings.Join(tokens[:end], " ")
}

// Tokens splits an already-normalized form into its tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Acronym builds the initialism of a multi-token normalized form. Two-letter
// legal-form tokens are initialisms already and pass through whole, so
// "petroleos de venezuela sa" becomes "pdvsa", not "pdvs". Single-token
// forms have no acronym.
func Acronym(normalized string) string {
	tokens := strings.Fields(normalized)
	if len(tokens) < 2 {
		return ""
	}

	var b strings.Builder
	for _, tok := range tokens {
		if len(tok) == 2 && corporateSuffixes[tok] {
			b.WriteString(tok)
			continue
		}
		b.WriteByte(tok[0])
	}
	return b.String()
}
