package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for full name and module name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameTokens splits a free-text name into comparable tokens: uppercase, accents stripped,
// only A-Z and 0-9 kept. Whitespace runs separate tokens; every other character is dropped,
// so "Jean-Pierre" yields JEANPIERRE.
//
// Empty or whitespace-only input yields no tokens.
func NameTokens(s string) []string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return nil
	}

	// Transformers returned by transform.Chain carry state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}
