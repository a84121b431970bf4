// Package identity canonicalizes free-text person names into comparable keys.
//
// Two display names that normalize to the same Key are the same person
// everywhere downstream. This merges spelling variants ("José Núñez" and
// "jose nunez") but also merges genuinely different people who share a
// name; callers that need to keep them apart must disambiguate the display
// names before they reach this package.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is a normalized person name.
type Key string

// EmptyKey marks a name that could not be normalized. It is never a valid
// identity and must be treated as "unknown".
const EmptyKey Key = ""

// IsEmpty reports whether k is the unknown sentinel.
func (k Key) IsEmpty() bool { return k == EmptyKey }

func (k Key) String() string { return string(k) }

var (
	parenthetical = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)

	honorifics = map[string]struct{}{
		"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "mx": {},
		"dr": {}, "prof": {}, "sir": {}, "dame": {},
	}
	suffixes = map[string]struct{}{
		"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {},
	}
)

// Normalize folds name into a Key: annotations in parentheses are dropped,
// diacritics stripped, case folded, punctuation trimmed from every token,
// honorifics and generational suffixes removed, and whitespace collapsed.
func Normalize(name string) Key {
	name = parenthetical.ReplaceAllString(name, " ")

	folded, _, err := transform.String(foldChain(), name)
	if err != nil {
		folded = strings.ToLower(name)
	}

	tokens := strings.FieldsFunc(folded, isSeparator)
	out := tokens[:0]
	for _, tok := range tokens {
		tok = strings.TrimFunc(tok, isTrimmable)
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}

	for len(out) > 1 {
		if _, ok := honorifics[strings.TrimSuffix(out[0], ".")]; !ok {
			break
		}
		out = out[1:]
	}
	for len(out) > 1 {
		if _, ok := suffixes[strings.TrimSuffix(out[len(out)-1], ".")]; !ok {
			break
		}
		out = out[:len(out)-1]
	}

	return Key(strings.Join(out, " "))
}

// Tokens splits a key into its space separated tokens.
func Tokens(k Key) []string {
	return strings.Fields(string(k))
}

// foldChain builds a fresh transformer per call; transformers are stateful.
func foldChain() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		cases.Fold(),
	)
}

// isSeparator splits tokens on whitespace and on punctuation that never
// appears inside a name.
func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '\'', '-', '.', '’':
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func isTrimmable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
