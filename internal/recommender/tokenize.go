package recommender

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/temcen/shoprec/pkg/models"
)

// Tokenize lower-cases text and splits it on anything that is not a letter,
// digit or underscore, keeping tokens longer than minLen runes.
func Tokenize(text string, minLen int) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func productText(p models.Product) string {
	return p.Name + " " + p.Description
}

func tokenSet(p models.Product, minLen int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(productText(p), minLen) {
		set[t] = struct{}{}
	}
	return set
}
