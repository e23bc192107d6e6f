package diff

import (
	"slices"

	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// EnumDiff describes how the variants of a paired enum changed. Variant
// order is significant: a reordering with an identical label set is still
// a change.
type EnumDiff struct {
	Pair     MigrationPair[introspect.EnumID]
	Previous *introspect.Enum
	Next     *introspect.Enum

	Added     []string
	Removed   []string
	Reordered bool
}

// IsEmpty reports whether the variant sequences are identical
func (d *EnumDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && !d.Reordered
}

// DiffEnums compares the ordered variant sequences of two enums. Labels are
// compared exactly; they are data, not identifiers.
func DiffEnums(prev, next *introspect.Enum) *EnumDiff {
	d := &EnumDiff{Previous: prev, Next: next}
	if slices.Equal(prev.Values, next.Values) {
		return d
	}

	inPrev := make(map[string]bool, len(prev.Values))
	for _, v := range prev.Values {
		inPrev[v] = true
	}
	inNext := make(map[string]bool, len(next.Values))
	for _, v := range next.Values {
		inNext[v] = true
	}

	for _, v := range next.Values {
		if !inPrev[v] {
			d.Added = append(d.Added, v)
		}
	}
	var keptPrev []string
	for _, v := range prev.Values {
		if !inNext[v] {
			d.Removed = append(d.Removed, v)
		} else {
			keptPrev = append(keptPrev, v)
		}
	}
	var keptNext []string
	for _, v := range next.Values {
		if inPrev[v] {
			keptNext = append(keptNext, v)
		}
	}

	// Surviving labels in a different relative order, or a sequence that
	// differs only by repeated labels
	d.Reordered = !slices.Equal(keptPrev, keptNext) || (len(d.Added) == 0 && len(d.Removed) == 0)

	return d
}
