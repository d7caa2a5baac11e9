// Package strings provides string normalization utilities for user-supplied text.
package strings

import (
	"strings"
	"unicode"
)

// StripSpace removes every Unicode whitespace rune (spaces, tabs, CR, LF) from s.
//
// Example:
//
//	StripSpace(" AT CG\r\nTT ")
//	// Returns: "ATCGTT"
func StripSpace(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TrimUpper trims surrounding whitespace and uppercases s.
//
// Example:
//
//	TrimUpper("  atcg \n")
//	// Returns: "ATCG"
func TrimUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
