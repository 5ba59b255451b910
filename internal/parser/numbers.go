package parser

import (
	"strconv"
	"strings"
	"unicode"
)

var units = map[string]float64{
	"zero": 0, "oh": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tens = map[string]float64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// number extracts the first numeric value in tokens. Digits ("145", "6.5")
// and spelled numbers ("one hundred forty five", "one forty five", "a hundred
// and twenty", "six and a half") are all accepted.
func number(tokens []string) (float64, bool) {
	for i, tok := range tokens {
		if v, ok := numeral(tok); ok {
			if hasHalf(tokens[i+1:]) {
				v += 0.5
			}
			return v, true
		}
		if tok == "a" && i+1 < len(tokens) && scaleWord(tokens[i+1]) {
			return spelled(tokens[i+1:])
		}
		if isNumberWord(tok) || scaleWord(tok) {
			return spelled(tokens[i:])
		}
	}
	return 0, false
}

// numeral parses a token written in digits. Only plain decimals count, so
// "nan", "inf" or "1e9" never become values.
func numeral(tok string) (float64, bool) {
	dot := false
	for i, r := range tok {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot && i > 0 && i < len(tok)-1:
			dot = true
		default:
			return 0, false
		}
	}
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	return v, err == nil
}

func isNumberWord(w string) bool {
	_, u := units[w]
	_, t := tens[w]
	return (u && w != "oh") || t
}

func scaleWord(w string) bool {
	return w == "hundred" || w == "thousand"
}

// hasHalf matches a trailing "and a half".
func hasHalf(rest []string) bool {
	return len(rest) >= 3 && rest[0] == "and" && rest[1] == "a" && rest[2] == "half"
}

func spelled(tokens []string) (float64, bool) {
	var total, current float64
	seen := false
	// digit is set while current holds a lone single digit word, so that
	// "one forty five" reads as 145 the way numbers are often spoken.
	digit := false
	for i := 0; i < len(tokens); i++ {
		w := tokens[i]
		if n, ok := units[w]; ok {
			if digit && n >= 10 {
				current = current*100 + n
				digit = false
				seen = true
				continue
			}
			current += n
			digit = n < 10 && current == n
			seen = true
			continue
		}
		if n, ok := tens[w]; ok {
			if digit {
				current *= 100
			}
			current += n
			digit = false
			seen = true
			continue
		}
		digit = false
		switch w {
		case "hundred":
			if current == 0 {
				current = 1
			}
			current *= 100
			seen = true
			continue
		case "thousand":
			if current == 0 {
				current = 1
			}
			total += current * 1000
			current = 0
			seen = true
			continue
		case "and":
			if hasHalf(tokens[i:]) {
				return total + current + 0.5, seen
			}
			if i+1 < len(tokens) && isNumberWord(tokens[i+1]) {
				continue
			}
		case "point":
			if frac, ok := decimals(tokens[i+1:]); ok {
				return total + current + frac, seen
			}
		}
		break
	}
	return total + current, seen
}

// decimals reads single digit words after "point": "point five" is 0.5.
func decimals(tokens []string) (float64, bool) {
	var frac float64
	scale := 0.1
	n := 0
	for _, w := range tokens {
		d, ok := units[w]
		if !ok || d > 9 {
			break
		}
		frac += d * scale
		scale /= 10
		n++
	}
	return frac, n > 0
}

var yesWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"did": true, "correct": true, "right": true, "absolutely": true, "all": true,
}

var noWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "not": true, "didnt": true,
	"missed": true, "forgot": true, "never": true,
}

// yesNo classifies an answer. A negation anywhere wins over an affirmation so
// that "i did not" reads as no.
func yesNo(tokens []string) (yes bool, ok bool) {
	sawYes := false
	for _, tok := range tokens {
		if noWords[tok] {
			return false, true
		}
		if yesWords[tok] {
			sawYes = true
		}
	}
	return sawYes, sawYes
}

// digits collects every digit in tokens, spelled or written, in order. "three
// one oh" and "310" both give "310".
func digits(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		if d, ok := units[tok]; ok && d < 10 {
			b.WriteByte(byte('0' + int(d)))
			continue
		}
		for _, r := range tok {
			if unicode.IsDigit(r) && r < 128 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
