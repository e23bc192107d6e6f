package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// model is an in-memory database that applies plan steps and rejects any
// step whose preconditions do not hold at that point of the plan. With
// strict set it also enforces referential integrity the way engines that
// alter foreign keys in place do.
type model struct {
	policy introspect.CasePolicy
	strict bool
	tables []introspect.Table
	enums  []introspect.Enum
}

func newModel(s *introspect.DatabaseSchema, f flavour.DifferFlavour) *model {
	m := &model{strict: f.Capabilities().Has(flavour.AddForeignKey | flavour.DropForeignKey)}
	if f.LowerCasesTableNames() {
		m.policy = introspect.CaseInsensitive
	}
	for _, t := range s.Tables {
		if f.TableShouldBeIgnored(t.Name) {
			continue
		}
		m.tables = append(m.tables, introspect.CloneTable(t))
	}
	for _, e := range s.Enums {
		m.enums = append(m.enums, cloneEnum(&e))
	}
	return m
}

func (m *model) same(a, b string) bool {
	return m.policy.Normalize(a) == m.policy.Normalize(b)
}

func (m *model) table(name string) int {
	for i := range m.tables {
		if m.same(m.tables[i].QualifiedName(), name) {
			return i
		}
	}
	return -1
}

func (m *model) enum(name string) int {
	for i := range m.enums {
		if m.same(m.enums[i].Name, name) {
			return i
		}
	}
	return -1
}

func (m *model) column(t *introspect.Table, name string) int {
	for i := range t.Columns {
		if m.same(t.Columns[i].Name, name) {
			return i
		}
	}
	return -1
}

func (m *model) checkEnums(cols []introspect.Column) error {
	for _, c := range cols {
		if c.Enum != "" && m.enum(c.Enum) < 0 {
			return fmt.Errorf("column %s uses missing enum %s", c.Name, c.Enum)
		}
	}
	return nil
}

func (m *model) refersTo(owner *introspect.Table, fk *introspect.ForeignKey, table string) bool {
	return m.same(fk.ReferencedName(owner.Schema), table)
}

// incoming returns a foreign key from another table into table, if any
func (m *model) incoming(table string, column string) (string, bool) {
	for i := range m.tables {
		t := &m.tables[i]
		if m.same(t.QualifiedName(), table) {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if !m.refersTo(t, &fk, table) {
				continue
			}
			if column == "" {
				return t.Name + "." + fk.Name, true
			}
			for _, c := range fk.ReferencedColumns {
				if m.same(c, column) {
					return t.Name + "." + fk.Name, true
				}
			}
		}
	}
	return "", false
}

func (m *model) apply(step Step) error {
	switch s := step.(type) {
	case *CreateTable:
		if m.table(s.Table()) >= 0 {
			return fmt.Errorf("table %s already exists", s.Table())
		}
		if err := m.checkEnums(s.Definition.Columns); err != nil {
			return err
		}
		m.tables = append(m.tables, introspect.CloneTable(s.Definition))

	case *DropTable:
		i := m.table(s.Table())
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.Table())
		}
		if from, ok := m.incoming(s.Table(), ""); ok && m.strict {
			return fmt.Errorf("table %s is still referenced by %s", s.Table(), from)
		}
		m.tables = append(m.tables[:i], m.tables[i+1:]...)

	case *AddColumn:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		if m.column(t, s.Column.Name) >= 0 {
			return fmt.Errorf("column %s.%s already exists", s.TableName, s.Column.Name)
		}
		if err := m.checkEnums([]introspect.Column{s.Column}); err != nil {
			return err
		}
		t.Columns = append(t.Columns, s.Column)

	case *DropColumn:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		c := m.column(t, s.Column.Name)
		if c < 0 {
			return fmt.Errorf("column %s.%s does not exist", s.TableName, s.Column.Name)
		}
		for _, idx := range t.Indexes {
			for _, ic := range idx.Columns {
				if m.same(ic, s.Column.Name) {
					return fmt.Errorf("column %s.%s is still indexed by %s", s.TableName, s.Column.Name, idx.Name)
				}
			}
		}
		if m.strict {
			for _, fk := range t.ForeignKeys {
				for _, fc := range fk.Columns {
					if m.same(fc, s.Column.Name) {
						return fmt.Errorf("column %s.%s is still used by %s", s.TableName, s.Column.Name, fk.Name)
					}
				}
			}
			if from, ok := m.incoming(s.TableName, s.Column.Name); ok {
				return fmt.Errorf("column %s.%s is still referenced by %s", s.TableName, s.Column.Name, from)
			}
		}
		t.Columns = append(t.Columns[:c], t.Columns[c+1:]...)

	case *AlterColumn:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		c := m.column(t, s.Previous.Name)
		if c < 0 {
			return fmt.Errorf("column %s.%s does not exist", s.TableName, s.Previous.Name)
		}
		if err := m.checkEnums([]introspect.Column{s.Next}); err != nil {
			return err
		}
		t.Columns[c] = s.Next

	case *RedefineTable:
		i := m.table(s.Previous.QualifiedName())
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.Previous.QualifiedName())
		}
		for _, cp := range s.CopyColumns {
			if m.column(&m.tables[i], cp.From) < 0 {
				return fmt.Errorf("copied column %s.%s does not exist", s.Table(), cp.From)
			}
		}
		if from, ok := m.incoming(s.Previous.QualifiedName(), ""); ok && m.strict {
			return fmt.Errorf("redefined table %s is still referenced by %s", s.Table(), from)
		}
		if err := m.checkEnums(s.Next.Columns); err != nil {
			return err
		}
		m.tables[i] = introspect.CloneTable(s.Next)

	case *CreateIndex:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		for _, c := range s.Index.Columns {
			if m.column(t, c) < 0 {
				return fmt.Errorf("index %s uses missing column %s", s.Index.Name, c)
			}
		}
		if s.Index.Name != "" && m.strict {
			for _, other := range m.tables {
				for _, idx := range other.Indexes {
					if m.same(idx.Name, s.Index.Name) {
						return fmt.Errorf("index name %s is taken", s.Index.Name)
					}
				}
			}
		}
		t.Indexes = append(t.Indexes, cloneIndex(&s.Index))

	case *DropIndex:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		for j := range t.Indexes {
			if m.same(t.Indexes[j].Name, s.Index.Name) && m.columnList(t.Indexes[j].Columns) == m.columnList(s.Index.Columns) {
				t.Indexes = append(t.Indexes[:j], t.Indexes[j+1:]...)
				return nil
			}
		}
		return fmt.Errorf("index %s does not exist on %s", s.Index.Name, s.TableName)

	case *CreateForeignKey:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		for _, c := range s.ForeignKey.Columns {
			if m.column(t, c) < 0 {
				return fmt.Errorf("foreign key %s uses missing column %s", s.ForeignKey.Name, c)
			}
		}
		target := s.ForeignKey.ReferencedName(t.Schema)
		r := m.table(target)
		if r < 0 {
			return fmt.Errorf("foreign key %s references missing table %s", s.ForeignKey.Name, target)
		}
		for _, c := range s.ForeignKey.ReferencedColumns {
			if m.column(&m.tables[r], c) < 0 {
				return fmt.Errorf("foreign key %s references missing column %s", s.ForeignKey.Name, c)
			}
		}
		t.ForeignKeys = append(t.ForeignKeys, cloneForeignKey(&s.ForeignKey))

	case *DropForeignKey:
		i := m.table(s.TableName)
		if i < 0 {
			return fmt.Errorf("table %s does not exist", s.TableName)
		}
		t := &m.tables[i]
		for j := range t.ForeignKeys {
			fk := &t.ForeignKeys[j]
			if m.same(fk.Name, s.ForeignKey.Name) && m.columnList(fk.Columns) == m.columnList(s.ForeignKey.Columns) && m.refersTo(t, fk, s.ForeignKey.ReferencedName(t.Schema)) {
				t.ForeignKeys = append(t.ForeignKeys[:j], t.ForeignKeys[j+1:]...)
				return nil
			}
		}
		return fmt.Errorf("foreign key %s does not exist on %s", s.ForeignKey.Name, s.TableName)

	case *CreateEnum:
		if m.enum(s.Enum.Name) >= 0 {
			return fmt.Errorf("enum %s already exists", s.Enum.Name)
		}
		m.enums = append(m.enums, cloneEnum(&s.Enum))

	case *DropEnum:
		e := m.enum(s.Enum.Name)
		if e < 0 {
			return fmt.Errorf("enum %s does not exist", s.Enum.Name)
		}
		for _, t := range m.tables {
			for _, c := range t.Columns {
				if m.same(c.Enum, s.Enum.Name) {
					return fmt.Errorf("enum %s is still used by %s.%s", s.Enum.Name, t.Name, c.Name)
				}
			}
		}
		m.enums = append(m.enums[:e], m.enums[e+1:]...)

	case *AlterEnum:
		e := m.enum(s.Previous.Name)
		if e < 0 {
			return fmt.Errorf("enum %s does not exist", s.Previous.Name)
		}
		m.enums[e] = cloneEnum(&s.Next)

	default:
		return fmt.Errorf("unknown step %T", step)
	}
	return nil
}

func (m *model) columnList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = m.policy.Normalize(c)
	}
	return strings.Join(out, ",")
}

// canonical renders the structure the differ compares, ignoring index and
// foreign key names and column order
func (m *model) canonical(tables []introspect.Table, enums []introspect.Enum) string {
	var out []string
	for _, t := range tables {
		var parts []string
		for _, c := range t.Columns {
			def := "-"
			if c.DefaultValue != nil {
				def = strings.TrimSpace(*c.DefaultValue)
			}
			parts = append(parts, fmt.Sprintf("col %s %s %s %v %s %s %v",
				m.policy.Normalize(c.Name), introspect.NormalizeType(c.Type), introspect.NormalizeType(c.NativeType),
				c.Nullable, def, m.policy.Normalize(c.Enum), c.AutoIncrement))
		}
		if t.PrimaryKey != nil {
			parts = append(parts, "pk "+m.columnList(t.PrimaryKey.Columns))
		}
		for _, idx := range t.Indexes {
			parts = append(parts, fmt.Sprintf("idx %s %v", m.columnList(idx.Columns), idx.IsUnique))
		}
		for _, fk := range t.ForeignKeys {
			parts = append(parts, fmt.Sprintf("fk %s %s %s %s %s",
				m.columnList(fk.Columns), m.policy.Normalize(fk.ReferencedName(t.Schema)), m.columnList(fk.ReferencedColumns),
				fk.OnDelete.Normalize(), fk.OnUpdate.Normalize()))
		}
		sort.Strings(parts)
		out = append(out, "table "+m.policy.Normalize(t.QualifiedName())+"\n  "+strings.Join(parts, "\n  "))
	}
	for _, e := range enums {
		out = append(out, "enum "+m.policy.Normalize(e.Name)+" "+strings.Join(e.Values, ","))
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}

// applyPlan runs every step against prev and reports the first failed
// precondition, or a mismatch between the result and next
func applyPlan(f flavour.DifferFlavour, prev, next *introspect.DatabaseSchema, plan *MigrationPlan) error {
	m := newModel(prev, f)
	for i, step := range plan.Steps {
		if err := m.apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Description(), err)
		}
	}

	want := newModel(next, f)
	got, expected := m.canonical(m.tables, m.enums), m.canonical(want.tables, want.enums)
	if got != expected {
		return fmt.Errorf("applied plan diverges from target:\ngot:\n%s\nwant:\n%s", got, expected)
	}
	return nil
}

// planSchemas diffs and plans two raw schemas under f
func planSchemas(f flavour.DifferFlavour, prev, next *introspect.DatabaseSchema) (*MigrationPlan, error) {
	p, err := introspect.NewSnapshotWithPolicy(prev, flavour.Policy(f))
	if err != nil {
		return nil, err
	}
	n, err := introspect.NewSnapshotWithPolicy(next, flavour.Policy(f))
	if err != nil {
		return nil, err
	}
	result, err := diff.NewDiffer(f, diff.Options{}).Diff(p, n)
	if err != nil {
		return nil, err
	}
	return NewPlanner().Plan(result), nil
}
