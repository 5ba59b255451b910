package normalize

import (
	"strings"
	"unicode"
)

// fillers are dropped from every utterance. Speech-to-text tends to keep them.
var fillers = map[string]bool{
	"um":  true,
	"umm": true,
	"uh":  true,
	"uhm": true,
	"er":  true,
	"erm": true,
	"hmm": true,
	"ah":  true,
}

// Tokens lowercases raw input, strips punctuation and filler words and splits it
// into tokens. A period between two digits survives so "6.5" stays one token.
// Empty or whitespace-only input yields an empty (non-nil) slice.
func Tokens(raw string) []string {
	runes := []rune(strings.ToLower(raw))
	var b strings.Builder
	b.Grow(len(runes))

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' && i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		case r == '\'':
			// "don't" -> "dont", keeps contractions in one token.
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if fillers[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
