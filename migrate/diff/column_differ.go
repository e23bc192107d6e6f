package diff

import (
	"strings"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// ColumnChanges is the set of differences between two versions of a column
type ColumnChanges uint8

const (
	TypeChanged ColumnChanges = 1 << iota
	NullabilityChanged
	DefaultChanged
	AutoIncrementChanged
)

// Unchanged reports whether no difference was found
func (c ColumnChanges) Unchanged() bool { return c == 0 }

// Has reports whether every change in other is present
func (c ColumnChanges) Has(other ColumnChanges) bool { return c&other == other }

// OnlyDefault reports whether the default is the only difference
func (c ColumnChanges) OnlyDefault() bool { return c == DefaultChanged }

func (c ColumnChanges) String() string {
	if c == 0 {
		return "unchanged"
	}
	var parts []string
	if c&TypeChanged != 0 {
		parts = append(parts, "type")
	}
	if c&NullabilityChanged != 0 {
		parts = append(parts, "nullability")
	}
	if c&DefaultChanged != 0 {
		parts = append(parts, "default")
	}
	if c&AutoIncrementChanged != 0 {
		parts = append(parts, "autoincrement")
	}
	return strings.Join(parts, ", ")
}

// RequiredCapabilities maps the changes to the in-place alterations they need
func (c ColumnChanges) RequiredCapabilities() flavour.Capability {
	var caps flavour.Capability
	if c&TypeChanged != 0 {
		caps |= flavour.AlterColumnType
	}
	if c&NullabilityChanged != 0 {
		caps |= flavour.AlterColumnNullability
	}
	if c&DefaultChanged != 0 {
		caps |= flavour.AlterColumnDefault
	}
	if c&AutoIncrementChanged != 0 {
		caps |= flavour.AlterColumnAutoIncrement
	}
	return caps
}

// DiffColumns compares two columns exactly after normalisation. Types and
// native types compare upper-cased with whitespace collapsed, enum
// references under policy, and defaults after trimming.
func DiffColumns(prev, next *introspect.Column, policy introspect.CasePolicy) ColumnChanges {
	var changes ColumnChanges

	if introspect.NormalizeType(prev.Type) != introspect.NormalizeType(next.Type) ||
		introspect.NormalizeType(prev.NativeType) != introspect.NormalizeType(next.NativeType) ||
		policy.Normalize(prev.Enum) != policy.Normalize(next.Enum) {
		changes |= TypeChanged
	}

	if prev.Nullable != next.Nullable {
		changes |= NullabilityChanged
	}

	if !defaultsMatch(prev.DefaultValue, next.DefaultValue) {
		changes |= DefaultChanged
	}

	if prev.AutoIncrement != next.AutoIncrement {
		changes |= AutoIncrementChanged
	}

	return changes
}

func defaultsMatch(prev, next *string) bool {
	if prev == nil || next == nil {
		return prev == nil && next == nil
	}
	return strings.TrimSpace(*prev) == strings.TrimSpace(*next)
}

// addColumnCapabilities returns what adding col to an existing table needs
func addColumnCapabilities(col *introspect.Column) flavour.Capability {
	if !col.Nullable && col.DefaultValue == nil && !col.AutoIncrement {
		return flavour.AddColumn | flavour.AddRequiredColumn
	}
	return flavour.AddColumn
}

// MarshalText renders the change set as its String form
func (c ColumnChanges) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
