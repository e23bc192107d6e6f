package planner

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// StepKind identifies a step variant
type StepKind string

const (
	KindCreateTable      StepKind = "CreateTable"
	KindDropTable        StepKind = "DropTable"
	KindAddColumn        StepKind = "AddColumn"
	KindDropColumn       StepKind = "DropColumn"
	KindAlterColumn      StepKind = "AlterColumn"
	KindRedefineTable    StepKind = "RedefineTable"
	KindCreateIndex      StepKind = "CreateIndex"
	KindDropIndex        StepKind = "DropIndex"
	KindCreateForeignKey StepKind = "CreateForeignKey"
	KindDropForeignKey   StepKind = "DropForeignKey"
	KindCreateEnum       StepKind = "CreateEnum"
	KindDropEnum         StepKind = "DropEnum"
	KindAlterEnum        StepKind = "AlterEnum"
)

// Step is one abstract unit of structural change. Rendering it into SQL is
// the caller's job.
type Step interface {
	Kind() StepKind
	// Table is the qualified name of the table acted on; empty for enum steps
	Table() string
	Description() string
	IsDestructive() bool
}

// CreateTable creates a table. Definition carries no indexes and only the
// foreign keys that must be declared inline; the rest follow as their own
// steps.
type CreateTable struct {
	Definition introspect.Table `json:"definition"`
}

func (s *CreateTable) Kind() StepKind      { return KindCreateTable }
func (s *CreateTable) Table() string       { return s.Definition.QualifiedName() }
func (s *CreateTable) IsDestructive() bool { return false }
func (s *CreateTable) Description() string {
	return fmt.Sprintf("Create table %s", s.Table())
}

// DropTable drops a table and its data
type DropTable struct {
	Definition introspect.Table `json:"definition"`
}

func (s *DropTable) Kind() StepKind      { return KindDropTable }
func (s *DropTable) Table() string       { return s.Definition.QualifiedName() }
func (s *DropTable) IsDestructive() bool { return true }
func (s *DropTable) Description() string {
	return fmt.Sprintf("Drop table %s", s.Table())
}

// AddColumn adds a column to an existing table
type AddColumn struct {
	TableName string            `json:"table"`
	Column    introspect.Column `json:"column"`
}

func (s *AddColumn) Kind() StepKind      { return KindAddColumn }
func (s *AddColumn) Table() string       { return s.TableName }
func (s *AddColumn) IsDestructive() bool { return false }
func (s *AddColumn) Description() string {
	return fmt.Sprintf("Add column %s.%s (%s)", s.TableName, s.Column.Name, s.Column.Type)
}

// DropColumn drops a column and its data
type DropColumn struct {
	TableName string            `json:"table"`
	Column    introspect.Column `json:"column"`
}

func (s *DropColumn) Kind() StepKind      { return KindDropColumn }
func (s *DropColumn) Table() string       { return s.TableName }
func (s *DropColumn) IsDestructive() bool { return true }
func (s *DropColumn) Description() string {
	return fmt.Sprintf("Drop column %s.%s", s.TableName, s.Column.Name)
}

// AlterColumn changes a column in place
type AlterColumn struct {
	TableName string             `json:"table"`
	Previous  introspect.Column  `json:"previous"`
	Next      introspect.Column  `json:"next"`
	Changes   diff.ColumnChanges `json:"changes"`
}

func (s *AlterColumn) Kind() StepKind { return KindAlterColumn }
func (s *AlterColumn) Table() string  { return s.TableName }

// IsDestructive is true for type changes and for making a column required
func (s *AlterColumn) IsDestructive() bool {
	return s.Changes.Has(diff.TypeChanged) ||
		(s.Changes.Has(diff.NullabilityChanged) && !s.Next.Nullable)
}

func (s *AlterColumn) Description() string {
	return fmt.Sprintf("Alter column %s.%s (%s)", s.TableName, s.Next.Name, s.Changes)
}

// RedefinePhase is one stage of a table rebuild
type RedefinePhase string

const (
	PhaseCreateShadow RedefinePhase = "create-shadow"
	PhaseCopyRows     RedefinePhase = "copy"
	PhaseDropOriginal RedefinePhase = "drop-original"
	PhaseRenameShadow RedefinePhase = "rename"
)

// ColumnCopy maps a previous column onto its next counterpart
type ColumnCopy struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RedefineTable rebuilds a table the engine cannot alter in place. Its
// phases always run together and in order, so it is a single step. Next is
// shaped like a CreateTable definition.
type RedefineTable struct {
	Previous    introspect.Table `json:"previous"`
	Next        introspect.Table `json:"next"`
	ShadowName  string           `json:"shadowName"`
	CopyColumns []ColumnCopy     `json:"copyColumns"`
}

func (s *RedefineTable) Kind() StepKind { return KindRedefineTable }
func (s *RedefineTable) Table() string  { return s.Next.QualifiedName() }

// Phases returns the rebuild stages in execution order
func (s *RedefineTable) Phases() []RedefinePhase {
	return []RedefinePhase{PhaseCreateShadow, PhaseCopyRows, PhaseDropOriginal, PhaseRenameShadow}
}

// DroppedColumns lists previous columns whose data is not copied
func (s *RedefineTable) DroppedColumns() []string {
	copied := make(map[string]bool, len(s.CopyColumns))
	for _, c := range s.CopyColumns {
		copied[c.From] = true
	}
	var out []string
	for _, c := range s.Previous.Columns {
		if !copied[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// IsDestructive is true when some previous column is not carried over
func (s *RedefineTable) IsDestructive() bool {
	return len(s.DroppedColumns()) > 0
}

func (s *RedefineTable) Description() string {
	return fmt.Sprintf("Redefine table %s via %s (%d columns copied)", s.Table(), s.ShadowName, len(s.CopyColumns))
}

// CreateIndex creates an index
type CreateIndex struct {
	TableName string           `json:"table"`
	Index     introspect.Index `json:"index"`
}

func (s *CreateIndex) Kind() StepKind      { return KindCreateIndex }
func (s *CreateIndex) Table() string       { return s.TableName }
func (s *CreateIndex) IsDestructive() bool { return false }
func (s *CreateIndex) Description() string {
	unique := ""
	if s.Index.IsUnique {
		unique = "unique "
	}
	return fmt.Sprintf("Create %sindex %s on %s (%s)", unique, s.Index.Name, s.TableName, strings.Join(s.Index.Columns, ", "))
}

// DropIndex drops an index
type DropIndex struct {
	TableName string           `json:"table"`
	Index     introspect.Index `json:"index"`
}

func (s *DropIndex) Kind() StepKind      { return KindDropIndex }
func (s *DropIndex) Table() string       { return s.TableName }
func (s *DropIndex) IsDestructive() bool { return false }
func (s *DropIndex) Description() string {
	return fmt.Sprintf("Drop index %s on %s", s.Index.Name, s.TableName)
}

// CreateForeignKey adds a foreign key to an existing table
type CreateForeignKey struct {
	TableName  string                `json:"table"`
	ForeignKey introspect.ForeignKey `json:"foreignKey"`
}

func (s *CreateForeignKey) Kind() StepKind      { return KindCreateForeignKey }
func (s *CreateForeignKey) Table() string       { return s.TableName }
func (s *CreateForeignKey) IsDestructive() bool { return false }
func (s *CreateForeignKey) Description() string {
	return fmt.Sprintf("Create foreign key %s on %s (%s) -> %s (%s)",
		s.ForeignKey.Name, s.TableName, strings.Join(s.ForeignKey.Columns, ", "),
		s.ForeignKey.ReferencedName(""), strings.Join(s.ForeignKey.ReferencedColumns, ", "))
}

// DropForeignKey drops a foreign key
type DropForeignKey struct {
	TableName  string                `json:"table"`
	ForeignKey introspect.ForeignKey `json:"foreignKey"`
}

func (s *DropForeignKey) Kind() StepKind      { return KindDropForeignKey }
func (s *DropForeignKey) Table() string       { return s.TableName }
func (s *DropForeignKey) IsDestructive() bool { return false }
func (s *DropForeignKey) Description() string {
	return fmt.Sprintf("Drop foreign key %s on %s", s.ForeignKey.Name, s.TableName)
}

// CreateEnum creates an enum type
type CreateEnum struct {
	Enum introspect.Enum `json:"enum"`
}

func (s *CreateEnum) Kind() StepKind      { return KindCreateEnum }
func (s *CreateEnum) Table() string       { return "" }
func (s *CreateEnum) IsDestructive() bool { return false }
func (s *CreateEnum) Description() string {
	return fmt.Sprintf("Create enum %s [%s]", s.Enum.Name, strings.Join(s.Enum.Values, ", "))
}

// DropEnum drops an enum type
type DropEnum struct {
	Enum introspect.Enum `json:"enum"`
}

func (s *DropEnum) Kind() StepKind      { return KindDropEnum }
func (s *DropEnum) Table() string       { return "" }
func (s *DropEnum) IsDestructive() bool { return true }
func (s *DropEnum) Description() string {
	return fmt.Sprintf("Drop enum %s", s.Enum.Name)
}

// AlterEnum replaces the variant sequence of an enum
type AlterEnum struct {
	Previous  introspect.Enum `json:"previous"`
	Next      introspect.Enum `json:"next"`
	Added     []string        `json:"added,omitempty"`
	Removed   []string        `json:"removed,omitempty"`
	Reordered bool            `json:"reordered,omitempty"`
}

func (s *AlterEnum) Kind() StepKind { return KindAlterEnum }
func (s *AlterEnum) Table() string  { return "" }

// IsDestructive is true when variants are removed
func (s *AlterEnum) IsDestructive() bool { return len(s.Removed) > 0 }

func (s *AlterEnum) Description() string {
	var parts []string
	if len(s.Added) > 0 {
		parts = append(parts, "add "+strings.Join(s.Added, ", "))
	}
	if len(s.Removed) > 0 {
		parts = append(parts, "remove "+strings.Join(s.Removed, ", "))
	}
	if s.Reordered {
		parts = append(parts, "reorder")
	}
	return fmt.Sprintf("Alter enum %s (%s)", s.Next.Name, strings.Join(parts, "; "))
}
