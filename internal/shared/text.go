package shared

import (
	"unicode"
	"unicode/utf8"
)

// UpperFirst returns s with its first rune upper-cased.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
