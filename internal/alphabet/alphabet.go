// Package alphabet checks that candidate strings contain only DNA nucleotides.
package alphabet

import (
	"unicode"

	dErrors "seqreg/pkg/domain-errors"
	pstrings "seqreg/pkg/platform/strings"
)

// Nucleotides lists the permitted bases in canonical order.
const Nucleotides = "ACGT"

// Validate reports whether candidate is non-empty and every rune is one of
// A, C, G, T in either case.
func Validate(candidate string) bool {
	if candidate == "" {
		return false
	}
	for _, r := range candidate {
		if !isBase(r) {
			return false
		}
	}
	return true
}

// Normalize removes all whitespace and uppercases the result.
func Normalize(raw string) string {
	stripped := pstrings.StripSpace(raw)
	out := make([]rune, 0, len(stripped))
	for _, r := range stripped {
		out = append(out, unicode.ToUpper(r))
	}
	return string(out)
}

// Check normalizes raw and returns it, or a domain error naming the violated rule:
// CodeEmptyContent when nothing is left after normalization, CodeInvalidAlphabet
// with the first offending character otherwise. The reported position is the
// 1-based character position in raw, whitespace included.
func Check(raw string) (string, error) {
	out := make([]rune, 0, len(raw))
	pos := 0
	for _, r := range raw {
		pos++
		if unicode.IsSpace(r) {
			continue
		}
		if !isBase(r) {
			return "", invalidBase(r, pos)
		}
		out = append(out, unicode.ToUpper(r))
	}
	if len(out) == 0 {
		return "", errEmpty()
	}
	return string(out), nil
}

// CheckExact is Check without whitespace removal: s is only uppercased, so any
// whitespace it still contains is reported as an invalid character.
func CheckExact(s string) (string, error) {
	if s == "" {
		return "", errEmpty()
	}
	out := make([]rune, 0, len(s))
	pos := 0
	for _, r := range s {
		pos++
		if !isBase(r) {
			return "", invalidBase(r, pos)
		}
		out = append(out, unicode.ToUpper(r))
	}
	return string(out), nil
}

func errEmpty() error {
	return dErrors.New(dErrors.CodeEmptyContent, "content must contain at least one base")
}

func invalidBase(r rune, pos int) error {
	return dErrors.Newf(dErrors.CodeInvalidAlphabet,
		"invalid base %q at position %d; allowed: A C G T", r, pos)
}

func isBase(r rune) bool {
	switch r {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't':
		return true
	}
	return false
}
