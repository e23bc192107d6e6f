// Package introspect provides the structural snapshot of a database schema
// and the introspectors that read one from a live database.
package introspect

import (
	"context"
	"database/sql"
)

// Introspector reads a database schema into a DatabaseSchema
type Introspector interface {
	Introspect(ctx context.Context) (*DatabaseSchema, error)
}

// DatabaseSchema represents the structure of one database
type DatabaseSchema struct {
	Tables []Table `yaml:"tables,omitempty" json:"tables,omitempty"`
	Enums  []Enum  `yaml:"enums,omitempty" json:"enums,omitempty"`
	Views  []View  `yaml:"views,omitempty" json:"views,omitempty"`
}

// Table represents a database table. The empty Schema is the default namespace.
type Table struct {
	Schema      string       `yaml:"schema,omitempty" json:"schema,omitempty"`
	Name        string       `yaml:"name" json:"name"`
	Columns     []Column     `yaml:"columns,omitempty" json:"columns,omitempty"`
	PrimaryKey  *PrimaryKey  `yaml:"primaryKey,omitempty" json:"primaryKey,omitempty"`
	Indexes     []Index      `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreignKeys,omitempty" json:"foreignKeys,omitempty"`
}

// QualifiedName returns schema.name, or name in the default namespace
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column represents a table column
type Column struct {
	Name          string  `yaml:"name" json:"name"`
	Type          string  `yaml:"type" json:"type"`
	Nullable      bool    `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	DefaultValue  *string `yaml:"default,omitempty" json:"default,omitempty"`
	NativeType    string  `yaml:"nativeType,omitempty" json:"nativeType,omitempty"`
	Enum          string  `yaml:"enum,omitempty" json:"enum,omitempty"`
	AutoIncrement bool    `yaml:"autoIncrement,omitempty" json:"autoIncrement,omitempty"`
}

// PrimaryKey represents a primary key constraint
type PrimaryKey struct {
	Name    string   `yaml:"name,omitempty" json:"name,omitempty"`
	Columns []string `yaml:"columns" json:"columns"`
}

// Index represents a database index
type Index struct {
	Name     string   `yaml:"name,omitempty" json:"name,omitempty"`
	Columns  []string `yaml:"columns" json:"columns"`
	IsUnique bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// ForeignKey represents a foreign key constraint.
// An empty ReferencedSchema means the owning table's namespace.
type ForeignKey struct {
	Name              string            `yaml:"name,omitempty" json:"name,omitempty"`
	Columns           []string          `yaml:"columns" json:"columns"`
	ReferencedSchema  string            `yaml:"referencedSchema,omitempty" json:"referencedSchema,omitempty"`
	ReferencedTable   string            `yaml:"referencedTable" json:"referencedTable"`
	ReferencedColumns []string          `yaml:"referencedColumns" json:"referencedColumns"`
	OnDelete          ReferentialAction `yaml:"onDelete,omitempty" json:"onDelete,omitempty"`
	OnUpdate          ReferentialAction `yaml:"onUpdate,omitempty" json:"onUpdate,omitempty"`
}

// ReferencedName returns the qualified name of the referenced table. An
// unset ReferencedSchema resolves to ownerSchema.
func (fk *ForeignKey) ReferencedName(ownerSchema string) string {
	schema := fk.ReferencedSchema
	if schema == "" {
		schema = ownerSchema
	}
	if schema == "" {
		return fk.ReferencedTable
	}
	return schema + "." + fk.ReferencedTable
}

// ReferentialAction is the ON DELETE / ON UPDATE behaviour of a foreign key
type ReferentialAction string

const (
	NoAction   ReferentialAction = "NO ACTION"
	Restrict   ReferentialAction = "RESTRICT"
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
)

// Normalize maps the unset action to NoAction and upper-cases the rest
func (a ReferentialAction) Normalize() ReferentialAction {
	if a == "" {
		return NoAction
	}
	return ReferentialAction(normalizeWords(string(a)))
}

// Enum represents a database enum type
type Enum struct {
	Name   string   `yaml:"name" json:"name"`
	Values []string `yaml:"values" json:"values"`
}

// View represents a database view
type View struct {
	Name       string `yaml:"name" json:"name"`
	Definition string `yaml:"definition,omitempty" json:"definition,omitempty"`
}

// NewIntrospector creates a new introspector for the given database
func NewIntrospector(db *sql.DB, provider string) (Introspector, error) {
	switch provider {
	case "postgresql", "postgres", "cockroachdb":
		return &PostgresIntrospector{db: db}, nil
	case "mysql":
		return &MySQLIntrospector{db: db}, nil
	case "sqlite", "sqlite3":
		return &SQLiteIntrospector{db: db}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
