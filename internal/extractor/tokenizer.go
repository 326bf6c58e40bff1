package extractor

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns paragraph text into the word list of a record:
// lowercased, accent-folded, letters only, stopwords removed.
type Tokenizer struct {
	stopwords map[string]struct{}
}

func NewTokenizer(set StopwordSet) Tokenizer {
	words := stopwordLists[set]
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[Fold(w)] = struct{}{}
	}
	return Tokenizer{stopwords: stop}
}

// Tokenize splits text on every non-letter rune. A word containing digits or
// punctuation is therefore split rather than kept whole.
func (t Tokenizer) Tokenize(text string) []string {
	folded := Fold(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := t.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Fold lowercases s and strips combining marks, so "Canción" and "cancion"
// compare equal.
func Fold(s string) string {
	lowered := cases.Lower(language.Und).String(s)
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, lowered)
	if err != nil {
		return lowered
	}
	return folded
}
