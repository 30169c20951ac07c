package sparse

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lower-cased terms. Identifiers are emitted whole
// and, when they are camelCase or snake_case, also as their parts:
// "parseHTTPHeader" yields parsehttpheader, parse, http, header.
func Tokenize(text string) []string {
	var terms []string
	var word []rune

	flush := func() {
		if len(word) == 0 {
			return
		}
		terms = appendWord(terms, word)
		word = word[:0]
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			word = append(word, r)
			continue
		}
		flush()
	}
	flush()
	return terms
}

func appendWord(terms []string, word []rune) []string {
	whole := strings.ToLower(strings.Trim(string(word), "_"))
	if whole == "" {
		return terms
	}
	terms = append(terms, whole)

	parts := splitIdentifier(word)
	if len(parts) > 1 {
		for _, p := range parts {
			terms = append(terms, strings.ToLower(p))
		}
	}
	return terms
}

// splitIdentifier cuts at underscores and at case changes. A run of capitals
// followed by a lower-case letter keeps its last capital for the next part.
func splitIdentifier(word []rune) []string {
	var parts []string
	start := -1

	emit := func(end int) {
		if start >= 0 && end > start {
			parts = append(parts, string(word[start:end]))
		}
		start = -1
	}

	for i, r := range word {
		if r == '_' {
			emit(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := word[i-1]
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			emit(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsDigit(prev):
			emit(i)
			start = i
		case unicode.IsLower(r) && unicode.IsUpper(prev) && i-1 > start:
			emit(i - 1)
			start = i - 1
		}
	}
	emit(len(word))
	return parts
}
