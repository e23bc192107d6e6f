// Package flavour provides provider-specific differ policy. The differ never
// branches on engine identity; everything it needs to know about an engine
// comes through a DifferFlavour.
package flavour

import (
	"strings"

	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// DifferFlavour provides provider-specific logic for schema comparison
type DifferFlavour interface {
	// Name identifies the flavour in logs and errors
	Name() string

	// LowerCasesTableNames returns true if names are compared case-insensitively
	LowerCasesTableNames() bool

	// TableShouldBeIgnored returns true for engine-owned bookkeeping tables
	TableShouldBeIgnored(tableName string) bool

	// Capabilities returns the alterations the engine can apply in place
	Capabilities() Capability

	// ShouldRedefineTable determines if a table must be rebuilt instead of altered
	ShouldRedefineTable(changes TableChanges) bool
}

// TableChanges is the differ's summary of what a paired table needs
type TableChanges interface {
	TableName() string
	RequiredCapabilities() Capability
}

// Capability is a set of in-place alterations
type Capability uint32

const (
	AddColumn Capability = 1 << iota
	// AddRequiredColumn is adding a NOT NULL column without a default.
	AddRequiredColumn
	DropColumn
	AlterColumnType
	AlterColumnNullability
	AlterColumnDefault
	AlterColumnAutoIncrement
	CreateIndex
	DropIndex
	AddForeignKey
	DropForeignKey
	AlterPrimaryKey
	Enums
	RedefineTables
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{AddColumn, "add column"},
	{AddRequiredColumn, "add required column"},
	{DropColumn, "drop column"},
	{AlterColumnType, "alter column type"},
	{AlterColumnNullability, "alter column nullability"},
	{AlterColumnDefault, "alter column default"},
	{AlterColumnAutoIncrement, "alter column autoincrement"},
	{CreateIndex, "create index"},
	{DropIndex, "drop index"},
	{AddForeignKey, "add foreign key"},
	{DropForeignKey, "drop foreign key"},
	{AlterPrimaryKey, "alter primary key"},
	{Enums, "enums"},
	{RedefineTables, "redefine tables"},
}

// Has reports whether every capability in other is present
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// String lists the capabilities in declaration order
func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range capabilityNames {
		if c&n.c != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ", ")
}

// Policy returns the name comparison policy of f
func Policy(f DifferFlavour) introspect.CasePolicy {
	if f.LowerCasesTableNames() {
		return introspect.CaseInsensitive
	}
	return introspect.CaseSensitive
}

// ExceedsCapabilities is the default redefinition predicate: true when any
// required alteration is missing from caps
func ExceedsCapabilities(caps, required Capability) bool {
	return required&^caps != 0
}

// Missing returns the required capabilities caps does not provide
func Missing(caps, required Capability) Capability {
	return required &^ caps
}

// migrationsTable is the bookkeeping table every flavour ignores
const migrationsTable = "_prisma_migrations"
