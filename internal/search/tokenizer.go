package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into index tokens. Text is NFKC-normalised and case
// folded, then split on every rune that is neither a letter nor a digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(fold(text), isSeparator)
}

// fold returns the comparison form of s. A Caser keeps state, so a fresh one
// is taken for every call.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// word is a token located in the original (unfolded) text.
type word struct {
	start, end int
	folded     string
}

// words returns the tokens of text together with their byte offsets.
func words(text string) []word {
	var (
		out   []word
		start = -1
	)
	for i, r := range text {
		if isSeparator(r) {
			if start >= 0 {
				out = append(out, word{start: start, end: i, folded: fold(text[start:i])})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word{start: start, end: len(text), folded: fold(text[start:])})
	}
	return out
}
