package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
)

var (
	// ErrAmbiguousName is matched by every AmbiguousNameCollisionError.
	ErrAmbiguousName = errors.New("ambiguous name collision")

	// ErrUnsupportedChange is matched by every UnsupportedChangeError.
	ErrUnsupportedChange = errors.New("unsupported change")

	// ErrPolicyMismatch is returned when a snapshot resolved its references
	// case-insensitively but the flavour compares names case-sensitively.
	ErrPolicyMismatch = errors.New("snapshot case policy does not match flavour")
)

// Side says which snapshot a collision was found in
type Side string

const (
	PreviousSide Side = "previous"
	NextSide     Side = "next"
)

// EntityKind names the kind of entity involved in a collision
type EntityKind string

const (
	TableEntity  EntityKind = "table"
	ColumnEntity EntityKind = "column"
	EnumEntity   EntityKind = "enum"
)

// Collision records distinct entities of one snapshot that normalise to
// the same key. The last name in Names is the one the index kept.
type Collision struct {
	Side  Side
	Kind  EntityKind
	Table string
	Names []string
}

func (c Collision) String() string {
	where := ""
	if c.Table != "" {
		where = fmt.Sprintf(" in table %q", c.Table)
	}
	return fmt.Sprintf("%s %ss%s: %s", c.Side, c.Kind, where, strings.Join(quoteAll(c.Names), ", "))
}

// AmbiguousNameCollisionError reports name collisions under the flavour's
// case policy.
type AmbiguousNameCollisionError struct {
	Collisions []Collision
}

// Error implements the error interface.
func (e *AmbiguousNameCollisionError) Error() string {
	parts := make([]string, len(e.Collisions))
	for i, c := range e.Collisions {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s: %s", ErrAmbiguousName, strings.Join(parts, "; "))
}

// Is reports whether target is ErrAmbiguousName.
func (e *AmbiguousNameCollisionError) Is(target error) bool {
	return target == ErrAmbiguousName
}

// UnsupportedChangeError is returned when a change has no in-place form and
// no redefinition strategy under the active flavour.
type UnsupportedChangeError struct {
	Flavour string
	Table   string
	Missing flavour.Capability
}

// Error implements the error interface.
func (e *UnsupportedChangeError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s does not support %s", ErrUnsupportedChange, e.Flavour, e.Missing)
	}
	return fmt.Sprintf("%s: %s cannot apply %s to table %q", ErrUnsupportedChange, e.Flavour, e.Missing, e.Table)
}

// Is reports whether target is ErrUnsupportedChange.
func (e *UnsupportedChangeError) Is(target error) bool {
	return target == ErrUnsupportedChange
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
