package search

import (
	"slices"
	"strings"
	"unicode"
)

// tokenize returns the distinct lowercase words of a query in order of
// first appearance. Single letters are too broad for a prefix query and
// are dropped.
func tokenize(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 || slices.Contains(terms, w) {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}
