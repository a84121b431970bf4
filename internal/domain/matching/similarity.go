package matching

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/okian/orgchart/internal/domain/identity"
)

// TokenSortRatio scores two keys from 0 to 100 after sorting their tokens,
// so "smith john" and "john smith" score 100.
func TokenSortRatio(a, b identity.Key) float64 {
	sa, sb := sortedTokens(a), sortedTokens(b)
	longest := max(utf8.RuneCountInString(sa), utf8.RuneCountInString(sb))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(sa, sb)
	return 100 * (1 - float64(d)/float64(longest))
}

// minPrefixRunes is the shortest key the prefix rule accepts; an initial
// such as "a" starts too many names to identify anyone.
const minPrefixRunes = 3

// isPrefixRelated reports whether one key starts the other, as in a nickname
// ("vic") against a full name ("victor zhou"). The shorter key needs at
// least minPrefixRunes runes.
func isPrefixRelated(a, b identity.Key) bool {
	short, long := string(a), string(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if utf8.RuneCountInString(short) < minPrefixRunes {
		return false
	}
	return strings.HasPrefix(long, short)
}

func sortedTokens(k identity.Key) string {
	tokens := identity.Tokens(k)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// initials returns the distinct first runes of k's tokens.
func initials(k identity.Key) []rune {
	var out []rune
	for _, tok := range identity.Tokens(k) {
		r, _ := utf8.DecodeRuneInString(tok)
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
