package introspect

import (
	"errors"
	"strings"
)

// CasePolicy decides how entity names are compared
type CasePolicy int

const (
	// CaseSensitive compares names byte for byte.
	CaseSensitive CasePolicy = iota
	// CaseInsensitive folds names to lower case before comparing.
	CaseInsensitive
)

// Normalize returns the comparison key of name under the policy
func (p CasePolicy) Normalize(name string) string {
	if p == CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

func (p CasePolicy) String() string {
	if p == CaseInsensitive {
		return "case-insensitive"
	}
	return "case-sensitive"
}

// TableID is the position of a table in its snapshot
type TableID int

// EnumID is the position of an enum in its snapshot
type EnumID int

// ColumnID addresses a column by table and position
type ColumnID struct {
	Table  TableID
	Column int
}

// IndexID addresses an index by table and position
type IndexID struct {
	Table TableID
	Index int
}

// ForeignKeyID addresses a foreign key by table and position
type ForeignKeyID struct {
	Table      TableID
	ForeignKey int
}

type tableKey struct {
	schema string
	name   string
}

// nameIndex holds the exact and the lower-cased lookup maps of one entity kind.
// Later entries overwrite earlier ones that share a key.
type nameIndex[K comparable, V any] struct {
	exact  map[K]V
	folded map[K]V
}

func newNameIndex[K comparable, V any](size int) nameIndex[K, V] {
	return nameIndex[K, V]{
		exact:  make(map[K]V, size),
		folded: make(map[K]V, size),
	}
}

func (n nameIndex[K, V]) byPolicy(policy CasePolicy) map[K]V {
	if policy == CaseInsensitive {
		return n.folded
	}
	return n.exact
}

// Snapshot is an immutable, validated view over a DatabaseSchema.
// Entities returned by its accessors are shared and must not be modified.
type Snapshot struct {
	schema  DatabaseSchema
	policy  CasePolicy
	tables  nameIndex[tableKey, TableID]
	enums   nameIndex[string, EnumID]
	columns []nameIndex[string, int]
	// fkTargets[t][f] is the table referenced by foreign key f of table t.
	fkTargets [][]TableID
}

// NewSnapshot copies schema, validates every cross-entity reference and
// builds the lookup maps. All dangling references are reported together.
// References are resolved case-sensitively.
func NewSnapshot(schema *DatabaseSchema) (*Snapshot, error) {
	return NewSnapshotWithPolicy(schema, CaseSensitive)
}

// NewSnapshotWithPolicy is NewSnapshot with references resolved under policy,
// which must be the policy of the flavour the snapshot is diffed with.
func NewSnapshotWithPolicy(schema *DatabaseSchema, policy CasePolicy) (*Snapshot, error) {
	s := &Snapshot{policy: policy}
	if schema != nil {
		s.schema = cloneSchema(schema)
	}

	s.tables = newNameIndex[tableKey, TableID](len(s.schema.Tables))
	s.columns = make([]nameIndex[string, int], len(s.schema.Tables))
	for i := range s.schema.Tables {
		t := &s.schema.Tables[i]
		s.tables.exact[tableKey{t.Schema, t.Name}] = TableID(i)
		s.tables.folded[tableKey{strings.ToLower(t.Schema), strings.ToLower(t.Name)}] = TableID(i)

		cols := newNameIndex[string, int](len(t.Columns))
		for j := range t.Columns {
			cols.exact[t.Columns[j].Name] = j
			cols.folded[strings.ToLower(t.Columns[j].Name)] = j
		}
		s.columns[i] = cols
	}

	s.enums = newNameIndex[string, EnumID](len(s.schema.Enums))
	for i := range s.schema.Enums {
		s.enums.exact[s.schema.Enums[i].Name] = EnumID(i)
		s.enums.folded[strings.ToLower(s.schema.Enums[i].Name)] = EnumID(i)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSnapshot is like NewSnapshot but panics on an invalid schema.
func MustSnapshot(schema *DatabaseSchema) *Snapshot {
	s, err := NewSnapshot(schema)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Snapshot) validate() error {
	var errs []error
	s.fkTargets = make([][]TableID, len(s.schema.Tables))

	for i := range s.schema.Tables {
		t := &s.schema.Tables[i]
		tid := TableID(i)
		name := t.QualifiedName()

		for _, col := range t.Columns {
			if col.Enum == "" {
				continue
			}
			if _, ok := s.LookupEnum(col.Enum, s.policy); !ok {
				errs = append(errs, &DanglingReferenceError{Kind: ColumnEnumRef, Table: name, Entity: col.Name, Target: col.Enum})
			}
		}

		if t.PrimaryKey != nil {
			for _, c := range t.PrimaryKey.Columns {
				if _, ok := s.LookupColumn(tid, c, s.policy); !ok {
					errs = append(errs, &DanglingReferenceError{Kind: PrimaryKeyColumnRef, Table: name, Entity: t.PrimaryKey.Name, Target: c})
				}
			}
		}

		for _, idx := range t.Indexes {
			for _, c := range idx.Columns {
				if _, ok := s.LookupColumn(tid, c, s.policy); !ok {
					errs = append(errs, &DanglingReferenceError{Kind: IndexColumnRef, Table: name, Entity: idx.Name, Target: c})
				}
			}
		}

		targets := make([]TableID, len(t.ForeignKeys))
		for f, fk := range t.ForeignKeys {
			targets[f] = -1
			if len(fk.Columns) != len(fk.ReferencedColumns) || len(fk.Columns) == 0 {
				errs = append(errs, &DanglingReferenceError{Kind: ForeignKeyArityRef, Table: name, Entity: fk.Name, Target: fk.ReferencedTable})
				continue
			}
			for _, c := range fk.Columns {
				if _, ok := s.LookupColumn(tid, c, s.policy); !ok {
					errs = append(errs, &DanglingReferenceError{Kind: ForeignKeyLocalRef, Table: name, Entity: fk.Name, Target: c})
				}
			}

			refSchema := fk.ReferencedSchema
			if refSchema == "" {
				refSchema = t.Schema
			}
			ref, ok := s.LookupTable(refSchema, fk.ReferencedTable, s.policy)
			if !ok {
				errs = append(errs, &DanglingReferenceError{Kind: ForeignKeyTableRef, Table: name, Entity: fk.Name, Target: fk.ReferencedTable})
				continue
			}
			for _, c := range fk.ReferencedColumns {
				if _, ok := s.LookupColumn(ref, c, s.policy); !ok {
					errs = append(errs, &DanglingReferenceError{Kind: ForeignKeyColumnRef, Table: name, Entity: fk.Name, Target: fk.ReferencedTable + "." + c})
				}
			}
			targets[f] = ref
		}
		s.fkTargets[i] = targets
	}

	return errors.Join(errs...)
}

// Tables returns the tables in declaration order. The slice is read-only.
func (s *Snapshot) Tables() []Table { return s.schema.Tables }

// Enums returns the enums in declaration order. The slice is read-only.
func (s *Snapshot) Enums() []Enum { return s.schema.Enums }

// Views returns the views in declaration order. The slice is read-only.
func (s *Snapshot) Views() []View { return s.schema.Views }

// TableCount returns the number of tables
func (s *Snapshot) TableCount() int { return len(s.schema.Tables) }

// EnumCount returns the number of enums
func (s *Snapshot) EnumCount() int { return len(s.schema.Enums) }

// Table resolves a table by ID
func (s *Snapshot) Table(id TableID) *Table { return &s.schema.Tables[id] }

// Column resolves a column by ID
func (s *Snapshot) Column(id ColumnID) *Column {
	return &s.schema.Tables[id.Table].Columns[id.Column]
}

// Index resolves an index by ID
func (s *Snapshot) Index(id IndexID) *Index {
	return &s.schema.Tables[id.Table].Indexes[id.Index]
}

// ForeignKey resolves a foreign key by ID
func (s *Snapshot) ForeignKey(id ForeignKeyID) *ForeignKey {
	return &s.schema.Tables[id.Table].ForeignKeys[id.ForeignKey]
}

// ReferencedTable resolves the table a foreign key points at
func (s *Snapshot) ReferencedTable(id ForeignKeyID) TableID {
	return s.fkTargets[id.Table][id.ForeignKey]
}

// Enum resolves an enum by ID
func (s *Snapshot) Enum(id EnumID) *Enum { return &s.schema.Enums[id] }

// LookupTable finds a table by namespace and name under policy
func (s *Snapshot) LookupTable(schema, name string, policy CasePolicy) (TableID, bool) {
	id, ok := s.tables.byPolicy(policy)[tableKey{policy.Normalize(schema), policy.Normalize(name)}]
	return id, ok
}

// LookupColumn finds a column of a table by name under policy
func (s *Snapshot) LookupColumn(table TableID, name string, policy CasePolicy) (int, bool) {
	idx, ok := s.columns[table].byPolicy(policy)[policy.Normalize(name)]
	return idx, ok
}

// LookupEnum finds an enum by name under policy
func (s *Snapshot) LookupEnum(name string, policy CasePolicy) (EnumID, bool) {
	id, ok := s.enums.byPolicy(policy)[policy.Normalize(name)]
	return id, ok
}

// Policy returns the policy references were resolved under
func (s *Snapshot) Policy() CasePolicy { return s.policy }

// Schema returns a deep copy of the underlying schema
func (s *Snapshot) Schema() *DatabaseSchema {
	c := cloneSchema(&s.schema)
	return &c
}

// NormalizeType returns the comparison form of a type descriptor:
// upper case with whitespace runs collapsed to one space.
func NormalizeType(t string) string {
	return normalizeWords(t)
}

func normalizeWords(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func cloneSchema(in *DatabaseSchema) DatabaseSchema {
	out := DatabaseSchema{
		Tables: make([]Table, len(in.Tables)),
		Enums:  make([]Enum, len(in.Enums)),
		Views:  append([]View(nil), in.Views...),
	}
	for i, t := range in.Tables {
		out.Tables[i] = CloneTable(t)
	}
	for i, e := range in.Enums {
		out.Enums[i] = Enum{Name: e.Name, Values: append([]string(nil), e.Values...)}
	}
	return out
}

// CloneTable returns a deep copy of t
func CloneTable(t Table) Table {
	c := Table{
		Schema:      t.Schema,
		Name:        t.Name,
		Columns:     make([]Column, len(t.Columns)),
		Indexes:     make([]Index, len(t.Indexes)),
		ForeignKeys: make([]ForeignKey, len(t.ForeignKeys)),
	}
	for i, col := range t.Columns {
		if col.DefaultValue != nil {
			v := *col.DefaultValue
			col.DefaultValue = &v
		}
		c.Columns[i] = col
	}
	if t.PrimaryKey != nil {
		c.PrimaryKey = &PrimaryKey{Name: t.PrimaryKey.Name, Columns: append([]string(nil), t.PrimaryKey.Columns...)}
	}
	for i, idx := range t.Indexes {
		c.Indexes[i] = Index{Name: idx.Name, Columns: append([]string(nil), idx.Columns...), IsUnique: idx.IsUnique}
	}
	for i, fk := range t.ForeignKeys {
		fk.Columns = append([]string(nil), fk.Columns...)
		fk.ReferencedColumns = append([]string(nil), fk.ReferencedColumns...)
		c.ForeignKeys[i] = fk
	}
	return c
}
