package domain

import "regexp"

type Symbol string

var symbolRe = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// ValidateSymbol checks the ticker format: uppercase, at most 10 chars,
// leading letter. Class-share suffixes like BRK.B are allowed.
func ValidateSymbol(s string) bool {
	return symbolRe.MatchString(s)
}
