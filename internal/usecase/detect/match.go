package detect

import (
	"strings"
	"unicode"
)

// Normalize lowercases text and folds punctuation to spaces so term
// matching is boundary-aware without regular expressions.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// hasTerm reports whether normalized text contains term. Multi-word terms
// match as substrings; single words match on word boundaries.
func hasTerm(normalized, term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(normalized, Normalize(term))
	}
	padded := " " + normalized + " "
	return strings.Contains(padded, " "+term+" ")
}

// matchAny returns all terms from the list present in normalized text.
func matchAny(normalized string, terms []string) []string {
	var hits []string
	for _, term := range terms {
		if hasTerm(normalized, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

// matchFirst returns the first matching term, or "".
func matchFirst(normalized string, terms []string) string {
	for _, term := range terms {
		if hasTerm(normalized, term) {
			return term
		}
	}
	return ""
}
