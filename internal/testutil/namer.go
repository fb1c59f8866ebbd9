// Package testutil provides deterministic generators and comparison
// helpers for tests.
package testutil

import (
	"strings"
	"unicode"

	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/uniq"
)

// NewNamer creates a namer whose first name is <prefix>_0 and which adds
// no process suffix, so generated SQL is byte-stable across runs.
//
// Each call returns an independent sequence.
func NewNamer() *uniq.Namer {
	return uniq.NewNamer(uniq.NewCounterAt(-1), "")
}

// NewBinder creates a binder for d over a fresh NewNamer sequence.
func NewBinder(d bind.Dialect) *bind.Binder {
	return bind.NewBinder(d, NewNamer())
}

// StripSpace removes all whitespace, for comparing SQL whose layout is
// not under test.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
