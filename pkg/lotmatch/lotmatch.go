// Package lotmatch implements normalized near-match detection for vaccine
// lot numbers. Lot numbers are hand-keyed from vial labels, so the dominant
// error modes are a single mistyped character, a dropped or doubled
// character, and the O/0 confusion. The package compares lots under a
// normalization that cancels those noise sources and accepts strings within
// a single edit (substitution, insertion, or deletion) of each other.
package lotmatch

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a lot number for comparison: upper-case, strip
// every non-alphanumeric rune, and fold the letter O into the digit 0.
func Normalize(lot string) string {
	var b strings.Builder
	b.Grow(len(lot))
	for _, r := range strings.ToUpper(lot) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		if r == 'O' {
			r = '0'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NearMatch reports whether two lot numbers are within one edit of each
// other after normalization. Identical strings are not a near match; a typo
// candidate must differ from the reference, just barely.
func NearMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return false
	}
	if na == "" || nb == "" {
		return false
	}
	return withinOneEdit(na, nb)
}

// withinOneEdit checks a classic single-edit distance: equal-length strings
// must differ in exactly one position, strings whose lengths differ by one
// must align with a single insertion.
func withinOneEdit(a, b string) bool {
	la, lb := len(a), len(b)
	switch {
	case la == lb:
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return diff == 1
	case la+1 == lb:
		return oneInsertion(a, b)
	case lb+1 == la:
		return oneInsertion(b, a)
	default:
		return false
	}
}

// oneInsertion reports whether long equals short with one extra character.
func oneInsertion(short, long string) bool {
	i, j := 0, 0
	skipped := false
	for i < len(short) && j < len(long) {
		if short[i] == long[j] {
			i++
			j++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		j++
	}
	return true
}
