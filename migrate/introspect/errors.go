package introspect

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported database provider")
	ErrIntrospectionFailed = errors.New("database introspection failed")

	// ErrDanglingReference is matched by every DanglingReferenceError.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrUnsupportedFormat is returned when a snapshot file declares a format version this build cannot read.
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")
)

// ReferenceKind says which kind of entity holds a dangling reference
type ReferenceKind string

const (
	ForeignKeyTableRef  ReferenceKind = "foreign key table"
	ForeignKeyColumnRef ReferenceKind = "foreign key column"
	ForeignKeyLocalRef  ReferenceKind = "foreign key local column"
	ForeignKeyArityRef  ReferenceKind = "foreign key arity"
	IndexColumnRef      ReferenceKind = "index column"
	PrimaryKeyColumnRef ReferenceKind = "primary key column"
	ColumnEnumRef       ReferenceKind = "column enum"
)

// DanglingReferenceError is returned when an entity of a snapshot points at
// a table, column or enum the snapshot does not contain.
type DanglingReferenceError struct {
	Kind   ReferenceKind
	Table  string
	Entity string
	Target string
}

// Error implements the error interface.
func (e *DanglingReferenceError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("dangling %s reference in table %q: %s", e.Kind, e.Table, e.Target)
	}
	return fmt.Sprintf("dangling %s reference in %q.%q: %s", e.Kind, e.Table, e.Entity, e.Target)
}

// Is reports whether target is ErrDanglingReference.
func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}
