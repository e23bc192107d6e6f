// Package planner turns diff results into ordered migration steps.
package planner

import (
	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// Planner generates migration plans
type Planner struct{}

// NewPlanner creates a new migration planner
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan orders the changes of a diff result. Creation follows dependencies
// and drops precede them; independent steps keep declaration order.
func (p *Planner) Plan(result *diff.Result) *MigrationPlan {
	b := &builder{
		r:           result,
		caps:        result.Flavour.Capabilities(),
		g:           newStepGraph(),
		createTable: map[string]int{},
		dropTable:   map[string]int{},
		redefine:    map[string]int{},
		columnAdds:  map[string][]int{},
		columnDrops: map[string][]int{},
		dropIndexes: map[string][]int{},
		createEnum:  map[string]int{},
		alterEnum:   map[string]int{},
		dropEnum:    map[string]int{},
		dropIndexBy: map[string][]int{},
		dropFKBy:    map[string][]int{},
	}

	b.enumSteps()
	b.droppedTables()
	b.createdTables()
	b.changedTables()
	b.link()

	plan := &MigrationPlan{
		From:    result.Previous.Fingerprint(),
		To:      result.Next.Fingerprint(),
		Flavour: result.Flavour.Name(),
		Steps:   b.g.sort(),
	}

	debug.Debug("Planned migration", "steps", len(plan.Steps), "from", plan.From, "to", plan.To)
	return plan
}

// meta is what a step touches, used to derive dependency edges
type meta struct {
	kind  StepKind
	table string
	// ref is the referenced table of a foreign key step
	ref string
	// inlineRefs are tables referenced by foreign keys declared inside a
	// CreateTable, DropTable or RedefineTable definition
	inlineRefs []string
	// releasedRefs are tables a RedefineTable stops referencing inline
	releasedRefs []string
	// enumsUsed are enums the step's resulting columns need
	enumsUsed []string
	// enumsReleased are enums whose users the step removes
	enumsReleased []string
	// name is the normalised index or foreign key name
	name string
}

type builder struct {
	r    *diff.Result
	caps flavour.Capability
	g    *stepGraph
	meta []meta

	createTable map[string]int
	dropTable   map[string]int
	redefine    map[string]int
	// columnAdds holds AddColumn and AlterColumn steps per table
	columnAdds map[string][]int
	// columnDrops holds DropColumn and AlterColumn steps per table
	columnDrops map[string][]int
	dropIndexes map[string][]int

	createEnum map[string]int
	alterEnum  map[string]int
	dropEnum   map[string]int

	// steps releasing an index or foreign key name
	dropIndexBy map[string][]int
	dropFKBy    map[string][]int
}

func (b *builder) add(step Step, prio priority, m meta) int {
	id := b.g.add(step, prio)
	m.kind = step.Kind()
	b.meta = append(b.meta, m)
	return id
}

func (b *builder) tableKey(t *introspect.Table) string {
	return b.r.Policy.Normalize(t.Schema) + "." + b.r.Policy.Normalize(t.Name)
}

func (b *builder) refKey(owner *introspect.Table, fk *introspect.ForeignKey) string {
	schema := fk.ReferencedSchema
	if schema == "" {
		schema = owner.Schema
	}
	return b.r.Policy.Normalize(schema) + "." + b.r.Policy.Normalize(fk.ReferencedTable)
}

func (b *builder) enumKey(name string) string {
	return b.r.Policy.Normalize(name)
}

func (b *builder) columnEnums(cols ...introspect.Column) []string {
	var out []string
	for _, c := range cols {
		if c.Enum != "" {
			out = append(out, b.enumKey(c.Enum))
		}
	}
	return out
}

// creationShape strips what follows a CreateTable or RedefineTable as
// separate steps
func (b *builder) creationShape(t *introspect.Table) introspect.Table {
	c := introspect.CloneTable(*t)
	c.Indexes = nil
	if b.caps.Has(flavour.AddForeignKey) {
		c.ForeignKeys = nil
	}
	return c
}

func (b *builder) enumSteps() {
	for _, id := range b.r.CreatedEnums {
		e := b.r.Next.Enum(id)
		step := &CreateEnum{Enum: cloneEnum(e)}
		b.createEnum[b.enumKey(e.Name)] = b.add(step, priority{phaseCreateEnums, int(id), 0}, meta{})
	}
	for _, ed := range b.r.EnumDiffs {
		step := &AlterEnum{
			Previous:  cloneEnum(ed.Previous),
			Next:      cloneEnum(ed.Next),
			Added:     ed.Added,
			Removed:   ed.Removed,
			Reordered: ed.Reordered,
		}
		b.alterEnum[b.enumKey(ed.Next.Name)] = b.add(step, priority{phaseAlterEnums, int(ed.Pair.Next), 0}, meta{})
	}
	for _, id := range b.r.DroppedEnums {
		e := b.r.Previous.Enum(id)
		step := &DropEnum{Enum: cloneEnum(e)}
		b.dropEnum[b.enumKey(e.Name)] = b.add(step, priority{phaseDropEnums, int(id), 0}, meta{})
	}
}

func (b *builder) droppedTables() {
	for _, id := range b.r.DroppedTables {
		t := b.r.Previous.Table(id)
		key := b.tableKey(t)

		var inline []string
		for f := range t.ForeignKeys {
			fk := &t.ForeignKeys[f]
			if b.caps.Has(flavour.DropForeignKey) {
				b.dropForeignKey(t, fk, int(id), f)
				continue
			}
			inline = append(inline, b.refKey(t, fk))
		}

		step := &DropTable{Definition: introspect.CloneTable(*t)}
		sid := b.add(step, priority{phaseDropTables, int(id), 0}, meta{
			table:         key,
			inlineRefs:    inline,
			enumsReleased: b.columnEnums(t.Columns...),
		})
		b.dropTable[key] = sid
		b.releaseNames(t, sid, !b.caps.Has(flavour.DropForeignKey))
	}
}

func (b *builder) createdTables() {
	for _, id := range b.r.CreatedTables {
		t := b.r.Next.Table(id)
		key := b.tableKey(t)
		shape := b.creationShape(t)

		var inline []string
		for f := range shape.ForeignKeys {
			inline = append(inline, b.refKey(t, &shape.ForeignKeys[f]))
		}

		step := &CreateTable{Definition: shape}
		sid := b.add(step, priority{phaseCreateTables, int(id), 0}, meta{
			table:      key,
			inlineRefs: inline,
			enumsUsed:  b.columnEnums(t.Columns...),
		})
		b.createTable[key] = sid

		for i := range t.Indexes {
			b.createIndex(t, &t.Indexes[i], int(id), i)
		}
		if b.caps.Has(flavour.AddForeignKey) {
			for f := range t.ForeignKeys {
				b.createForeignKey(t, &t.ForeignKeys[f], int(id), f)
			}
		}
	}
}

func (b *builder) changedTables() {
	for _, td := range b.r.TableDiffs {
		if td.Redefine {
			b.redefineTable(td)
			continue
		}

		prev, next := td.Previous, td.Next
		key := b.tableKey(next)
		major := int(td.Pair.Next)
		name := next.QualifiedName()

		for _, f := range td.DroppedForeignKeys {
			b.dropForeignKey(prev, &prev.ForeignKeys[f], major, f)
		}
		for _, i := range td.DroppedIndexes {
			idx := &prev.Indexes[i]
			sid := b.add(&DropIndex{TableName: name, Index: cloneIndex(idx)}, priority{phaseDropIndexes, major, i}, meta{table: key})
			b.dropIndexes[key] = append(b.dropIndexes[key], sid)
			b.releaseIndexName(idx.Name, sid)
		}

		for _, c := range td.DroppedColumns {
			col := prev.Columns[c]
			sid := b.add(&DropColumn{TableName: name, Column: cloneColumn(col)}, priority{phaseColumns, major, c}, meta{
				table:         key,
				enumsReleased: b.columnEnums(col),
			})
			b.columnDrops[key] = append(b.columnDrops[key], sid)
		}
		for _, cd := range td.AlteredColumns {
			pc, nc := prev.Columns[cd.Pair.Previous], next.Columns[cd.Pair.Next]
			m := meta{table: key, enumsUsed: b.columnEnums(nc)}
			if b.r.Policy.Normalize(pc.Enum) != b.r.Policy.Normalize(nc.Enum) {
				m.enumsReleased = b.columnEnums(pc)
			}
			step := &AlterColumn{TableName: name, Previous: cloneColumn(pc), Next: cloneColumn(nc), Changes: cd.Changes}
			sid := b.add(step, priority{phaseColumns, major, 1<<20 | cd.Pair.Next}, m)
			b.columnAdds[key] = append(b.columnAdds[key], sid)
			b.columnDrops[key] = append(b.columnDrops[key], sid)
		}
		for _, c := range td.AddedColumns {
			col := next.Columns[c]
			sid := b.add(&AddColumn{TableName: name, Column: cloneColumn(col)}, priority{phaseColumns, major, 2<<20 | c}, meta{
				table:     key,
				enumsUsed: b.columnEnums(col),
			})
			b.columnAdds[key] = append(b.columnAdds[key], sid)
		}

		for _, i := range td.CreatedIndexes {
			b.createIndex(next, &next.Indexes[i], major, i)
		}
		for _, f := range td.CreatedForeignKeys {
			b.createForeignKey(next, &next.ForeignKeys[f], major, f)
		}
	}
}

// redefineTable emits the rebuild as one composite step. The original's
// indexes go with it and the next indexes are recreated afterwards; foreign
// keys are dropped and recreated around it where the engine allows.
func (b *builder) redefineTable(td *diff.TableDiff) {
	prev, next := td.Previous, td.Next
	key := b.tableKey(next)
	major := int(td.Pair.Next)

	if b.caps.Has(flavour.DropForeignKey) {
		for f := range prev.ForeignKeys {
			b.dropForeignKey(prev, &prev.ForeignKeys[f], major, f)
		}
	}

	var copies []ColumnCopy
	for _, col := range next.Columns {
		if c, ok := b.r.Previous.LookupColumn(td.Pair.Previous, col.Name, b.r.Policy); ok {
			copies = append(copies, ColumnCopy{From: prev.Columns[c].Name, To: col.Name})
		}
	}

	step := &RedefineTable{
		Previous:    introspect.CloneTable(*prev),
		Next:        b.creationShape(next),
		ShadowName:  "new_" + next.Name,
		CopyColumns: copies,
	}
	m := meta{
		table:         key,
		enumsUsed:     b.columnEnums(next.Columns...),
		enumsReleased: b.columnEnums(prev.Columns...),
	}
	for f := range step.Next.ForeignKeys {
		m.inlineRefs = append(m.inlineRefs, b.refKey(next, &step.Next.ForeignKeys[f]))
	}
	if !b.caps.Has(flavour.DropForeignKey) {
		for f := range prev.ForeignKeys {
			m.releasedRefs = append(m.releasedRefs, b.refKey(prev, &prev.ForeignKeys[f]))
		}
	}
	sid := b.add(step, priority{phaseRedefineTables, major, 0}, m)
	b.redefine[key] = sid
	b.releaseNames(prev, sid, !b.caps.Has(flavour.DropForeignKey))

	for i := range next.Indexes {
		b.createIndex(next, &next.Indexes[i], major, i)
	}
	if b.caps.Has(flavour.AddForeignKey) {
		for f := range next.ForeignKeys {
			b.createForeignKey(next, &next.ForeignKeys[f], major, f)
		}
	}
}

func (b *builder) dropForeignKey(owner *introspect.Table, fk *introspect.ForeignKey, major, minor int) {
	step := &DropForeignKey{TableName: owner.QualifiedName(), ForeignKey: cloneForeignKey(fk)}
	sid := b.add(step, priority{phaseDropForeignKeys, major, minor}, meta{
		table: b.tableKey(owner),
		ref:   b.refKey(owner, fk),
	})
	if fk.Name != "" {
		k := b.r.Policy.Normalize(fk.Name)
		b.dropFKBy[k] = append(b.dropFKBy[k], sid)
	}
}

func (b *builder) releaseIndexName(name string, sid int) {
	if name != "" {
		k := b.r.Policy.Normalize(name)
		b.dropIndexBy[k] = append(b.dropIndexBy[k], sid)
	}
}

// releaseNames records that sid frees the index names of t, and its
// foreign key names when they were not dropped separately
func (b *builder) releaseNames(t *introspect.Table, sid int, foreignKeys bool) {
	for i := range t.Indexes {
		b.releaseIndexName(t.Indexes[i].Name, sid)
	}
	if !foreignKeys {
		return
	}
	for f := range t.ForeignKeys {
		if name := t.ForeignKeys[f].Name; name != "" {
			k := b.r.Policy.Normalize(name)
			b.dropFKBy[k] = append(b.dropFKBy[k], sid)
		}
	}
}

func (b *builder) createForeignKey(owner *introspect.Table, fk *introspect.ForeignKey, major, minor int) {
	step := &CreateForeignKey{TableName: owner.QualifiedName(), ForeignKey: cloneForeignKey(fk)}
	b.add(step, priority{phaseCreateForeignKeys, major, minor}, meta{
		table: b.tableKey(owner),
		ref:   b.refKey(owner, fk),
		name:  b.r.Policy.Normalize(fk.Name),
	})
}

func (b *builder) createIndex(owner *introspect.Table, idx *introspect.Index, major, minor int) {
	step := &CreateIndex{TableName: owner.QualifiedName(), Index: cloneIndex(idx)}
	b.add(step, priority{phaseCreateIndexes, major, minor}, meta{
		table: b.tableKey(owner),
		name:  b.r.Policy.Normalize(idx.Name),
	})
}

// link derives the dependency edges between all emitted steps
func (b *builder) link() {
	// tableReady lists the steps that must run before an index or foreign
	// key on key can be created
	tableReady := func(key string) []int {
		var ids []int
		if id, ok := b.createTable[key]; ok {
			ids = append(ids, id)
		}
		if id, ok := b.redefine[key]; ok {
			ids = append(ids, id)
		}
		return append(ids, b.columnAdds[key]...)
	}
	// tableTouched lists the steps a foreign key drop on key must precede
	tableTouched := func(key string) []int {
		var ids []int
		if id, ok := b.dropTable[key]; ok {
			ids = append(ids, id)
		}
		if id, ok := b.redefine[key]; ok {
			ids = append(ids, id)
		}
		return append(ids, b.columnDrops[key]...)
	}

	for id, m := range b.meta {
		for _, e := range m.enumsUsed {
			if c, ok := b.createEnum[e]; ok {
				b.g.edge(c, id)
			}
			if a, ok := b.alterEnum[e]; ok {
				b.g.edge(a, id)
			}
		}
		for _, e := range m.enumsReleased {
			if d, ok := b.dropEnum[e]; ok {
				b.g.edge(id, d)
			}
		}

		switch m.kind {
		case KindCreateIndex:
			for _, dep := range tableReady(m.table) {
				b.g.edge(dep, id)
			}
			if m.name != "" {
				for _, dep := range b.dropIndexBy[m.name] {
					b.g.edge(dep, id)
				}
			}
		case KindCreateForeignKey:
			for _, dep := range tableReady(m.table) {
				b.g.edge(dep, id)
			}
			if m.name != "" {
				for _, dep := range b.dropFKBy[m.name] {
					b.g.edge(dep, id)
				}
			}
			for _, dep := range tableReady(m.ref) {
				b.g.edge(dep, id)
			}
		case KindDropForeignKey:
			for _, after := range tableTouched(m.table) {
				b.g.edge(id, after)
			}
			for _, after := range tableTouched(m.ref) {
				b.g.edge(id, after)
			}
			for _, after := range b.dropIndexes[m.table] {
				b.g.edge(id, after)
			}
		case KindDropIndex:
			for _, after := range b.columnDrops[m.table] {
				b.g.edge(id, after)
			}
		case KindCreateTable:
			for _, ref := range m.inlineRefs {
				if dep, ok := b.createTable[ref]; ok {
					b.g.edge(dep, id)
				}
			}
		case KindDropTable:
			for _, ref := range m.inlineRefs {
				if after, ok := b.dropTable[ref]; ok {
					b.g.edge(id, after)
				}
			}
		case KindRedefineTable:
			for _, ref := range m.inlineRefs {
				if dep, ok := b.createTable[ref]; ok {
					b.g.edge(dep, id)
				}
			}
			for _, ref := range m.releasedRefs {
				if after, ok := b.dropTable[ref]; ok {
					b.g.edge(id, after)
				}
			}
		}
	}
}

func cloneEnum(e *introspect.Enum) introspect.Enum {
	return introspect.Enum{Name: e.Name, Values: append([]string(nil), e.Values...)}
}

func cloneColumn(c introspect.Column) introspect.Column {
	if c.DefaultValue != nil {
		v := *c.DefaultValue
		c.DefaultValue = &v
	}
	return c
}

func cloneIndex(idx *introspect.Index) introspect.Index {
	return introspect.Index{Name: idx.Name, Columns: append([]string(nil), idx.Columns...), IsUnique: idx.IsUnique}
}

func cloneForeignKey(fk *introspect.ForeignKey) introspect.ForeignKey {
	c := *fk
	c.Columns = append([]string(nil), fk.Columns...)
	c.ReferencedColumns = append([]string(nil), fk.ReferencedColumns...)
	return c
}
