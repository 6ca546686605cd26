// Package match provides the filename matching used to decide whether a
// Webshare search hit belongs to a requested title and episode. Matching is
// insensitive to case, diacritics, and the separator conventions release
// names use (dots, dashes, underscores, whitespace).
package match

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks, so "Příliš"
// normalizes the same as "Prilis".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize lower-cases s, strips diacritics, and deletes whitespace,
// '.', '-' and '_' entirely. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case unicode.IsSpace(r), r == '.', r == '-', r == '_':
			continue
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Transliterate returns the ASCII transliteration of s. Webshare uploads
// name files both with and without Czech diacritics, so title candidates are
// matched in both forms.
func Transliterate(s string) string {
	return unidecode.Unidecode(s)
}

// Matches reports whether the filename contains at least one of the titles
// AND at least one of the patterns, after normalization. The check is
// existential over both sets, not a specific pairing.
func Matches(filename string, titles, patterns []string) bool {
	name := Normalize(filename)
	return containsAny(name, titles) && containsAny(name, patterns)
}

// MatchesTitle reports whether the normalized filename contains any of the
// given titles.
func MatchesTitle(filename string, titles []string) bool {
	return containsAny(Normalize(filename), titles)
}

// MatchesPattern reports whether the normalized filename contains any of the
// given episode patterns.
func MatchesPattern(filename string, patterns []string) bool {
	return containsAny(Normalize(filename), patterns)
}

func containsAny(normalized string, candidates []string) bool {
	for _, c := range candidates {
		n := Normalize(c)
		if n == "" {
			continue
		}
		if strings.Contains(normalized, n) {
			return true
		}
	}
	return false
}
