package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CapitalizeFirst upper-cases the first rune only, leaving the rest of
// the string as typed.
func CapitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// TitleCase lower-cases the input then capitalizes each word, matching
// how the welcome message formats the typed display name.
func TitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = CapitalizeFirst(w)
	}
	return strings.Join(words, " ")
}
