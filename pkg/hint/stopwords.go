package hint

import (
	_ "embed"
	"strings"
	"unicode"
)

//go:embed stopwords_german.txt
var germanStopwords string

// Single-letter article endings left over by abbreviations ("e", "r", "s").
var germanExtra = []string{"e", "r", "s"}

var stopwordSets = map[string]map[string]bool{
	"german": buildSet(germanStopwords, germanExtra),
}

func buildSet(list string, extra []string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(list) {
		set[w] = true
	}
	for _, w := range extra {
		set[w] = true
	}
	return set
}

// Words splits text into words: runs of letters, digits and apostrophes.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// MainWords returns the words of text that are not stop words of lang.
// Unknown languages have no stop words.
func MainWords(text, lang string) []string {
	stop := stopwordSets[lang]
	var out []string
	for _, w := range Words(text) {
		if !stop[strings.ToLower(w)] {
			out = append(out, w)
		}
	}
	return out
}

// Languages lists the languages with a stop word list.
func Languages() []string {
	return []string{"german"}
}
