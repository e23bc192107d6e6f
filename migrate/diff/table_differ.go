package diff

import (
	"sort"
	"strings"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// ColumnDiff is a paired column and what changed about it
type ColumnDiff struct {
	Pair    MigrationPair[int]
	Changes ColumnChanges
}

// TableDiff holds every change of a paired table. Column, index and foreign
// key positions refer to the previous table for drops and the next table
// for creations.
type TableDiff struct {
	Pair     MigrationPair[introspect.TableID]
	Previous *introspect.Table
	Next     *introspect.Table

	AddedColumns       []int
	DroppedColumns     []int
	AlteredColumns     []ColumnDiff
	CreatedIndexes     []int
	DroppedIndexes     []int
	CreatedForeignKeys []int
	DroppedForeignKeys []int
	PrimaryKeyChanged  bool

	// Redefine is the flavour's verdict: rebuild instead of altering in place
	Redefine bool

	// keptForeignKeys are the matched, unchanged foreign keys
	keptForeignKeys []MigrationPair[int]
}

// TableName implements flavour.TableChanges
func (d *TableDiff) TableName() string { return d.Next.QualifiedName() }

// RequiredCapabilities implements flavour.TableChanges
func (d *TableDiff) RequiredCapabilities() flavour.Capability {
	var caps flavour.Capability
	for _, c := range d.AddedColumns {
		caps |= addColumnCapabilities(&d.Next.Columns[c])
	}
	if len(d.DroppedColumns) > 0 {
		caps |= flavour.DropColumn
	}
	for _, c := range d.AlteredColumns {
		caps |= c.Changes.RequiredCapabilities()
	}
	if len(d.CreatedIndexes) > 0 {
		caps |= flavour.CreateIndex
	}
	if len(d.DroppedIndexes) > 0 {
		caps |= flavour.DropIndex
	}
	if len(d.CreatedForeignKeys) > 0 {
		caps |= flavour.AddForeignKey
	}
	if len(d.DroppedForeignKeys) > 0 {
		caps |= flavour.DropForeignKey
	}
	if d.PrimaryKeyChanged {
		caps |= flavour.AlterPrimaryKey
	}
	return caps
}

// IsEmpty reports whether the table is unchanged
func (d *TableDiff) IsEmpty() bool {
	return len(d.AddedColumns) == 0 &&
		len(d.DroppedColumns) == 0 &&
		len(d.AlteredColumns) == 0 &&
		len(d.CreatedIndexes) == 0 &&
		len(d.DroppedIndexes) == 0 &&
		len(d.CreatedForeignKeys) == 0 &&
		len(d.DroppedForeignKeys) == 0 &&
		!d.PrimaryKeyChanged
}

// TableDiffer compares the two sides of a paired table
type TableDiffer struct {
	db        *DifferDatabase
	pair      MigrationPair[introspect.TableID]
	prevTable *introspect.Table
	nextTable *introspect.Table
}

// NewTableDiffer creates a new TableDiffer
func NewTableDiffer(db *DifferDatabase, pair MigrationPair[introspect.TableID]) *TableDiffer {
	return &TableDiffer{
		db:        db,
		pair:      pair,
		prevTable: db.prev.Table(pair.Previous),
		nextTable: db.next.Table(pair.Next),
	}
}

// Diff compares the two tables
func (td *TableDiffer) Diff() *TableDiff {
	d := &TableDiff{
		Pair:     td.pair,
		Previous: td.prevTable,
		Next:     td.nextTable,
	}

	td.compareColumns(d)
	td.compareIndexes(d)
	td.compareForeignKeys(d)
	d.PrimaryKeyChanged = td.primaryKeyChanged()

	return d
}

// compareColumns compares columns between the two tables
func (td *TableDiffer) compareColumns(d *TableDiff) {
	d.AddedColumns = td.db.CreatedColumns(td.pair)
	d.DroppedColumns = td.db.DroppedColumns(td.pair)

	for _, p := range td.db.ColumnPairs(td.pair) {
		changes := DiffColumns(&td.prevTable.Columns[p.Previous], &td.nextTable.Columns[p.Next], td.db.policy)
		if !changes.Unchanged() {
			d.AlteredColumns = append(d.AlteredColumns, ColumnDiff{Pair: p, Changes: changes})
		}
	}
}

// compareIndexes matches indexes by column list and uniqueness, never by
// name. Anything unmatched is dropped or created.
func (td *TableDiffer) compareIndexes(d *TableDiff) {
	prevKeys := make([]string, len(td.prevTable.Indexes))
	for i := range td.prevTable.Indexes {
		prevKeys[i] = td.indexKey(&td.prevTable.Indexes[i])
	}
	nextKeys := make([]string, len(td.nextTable.Indexes))
	for i := range td.nextTable.Indexes {
		nextKeys[i] = td.indexKey(&td.nextTable.Indexes[i])
	}

	_, d.CreatedIndexes, d.DroppedIndexes = matchByKey(prevKeys, nextKeys)
}

func (td *TableDiffer) indexKey(idx *introspect.Index) string {
	key := td.columnList(idx.Columns)
	if idx.IsUnique {
		return key + "\x01u"
	}
	return key + "\x01i"
}

// compareForeignKeys matches foreign keys by local columns and referenced
// table. A matched pair whose target columns or actions differ is dropped
// and recreated.
func (td *TableDiffer) compareForeignKeys(d *TableDiff) {
	prevKeys := make([]string, len(td.prevTable.ForeignKeys))
	for i := range td.prevTable.ForeignKeys {
		prevKeys[i] = td.foreignKeyKey(td.prevTable, &td.prevTable.ForeignKeys[i])
	}
	nextKeys := make([]string, len(td.nextTable.ForeignKeys))
	for i := range td.nextTable.ForeignKeys {
		nextKeys[i] = td.foreignKeyKey(td.nextTable, &td.nextTable.ForeignKeys[i])
	}

	matched, created, dropped := matchByKey(prevKeys, nextKeys)
	for _, p := range matched {
		if !td.foreignKeysMatch(&td.prevTable.ForeignKeys[p.Previous], &td.nextTable.ForeignKeys[p.Next]) {
			created = append(created, p.Next)
			dropped = append(dropped, p.Previous)
			continue
		}
		d.keptForeignKeys = append(d.keptForeignKeys, p)
	}
	sort.Ints(created)
	sort.Ints(dropped)

	d.CreatedForeignKeys = created
	d.DroppedForeignKeys = dropped
}

func (td *TableDiffer) foreignKeyKey(owner *introspect.Table, fk *introspect.ForeignKey) string {
	return td.columnList(fk.Columns) + "\x01" + td.referencedKey(owner, fk)
}

func (td *TableDiffer) referencedKey(owner *introspect.Table, fk *introspect.ForeignKey) string {
	schema := fk.ReferencedSchema
	if schema == "" {
		schema = owner.Schema
	}
	return td.db.policy.Normalize(schema) + "." + td.db.policy.Normalize(fk.ReferencedTable)
}

func (td *TableDiffer) foreignKeysMatch(prev, next *introspect.ForeignKey) bool {
	return td.columnList(prev.ReferencedColumns) == td.columnList(next.ReferencedColumns) &&
		prev.OnDelete.Normalize() == next.OnDelete.Normalize() &&
		prev.OnUpdate.Normalize() == next.OnUpdate.Normalize()
}

// primaryKeyChanged compares primary key column lists; names are ignored
func (td *TableDiffer) primaryKeyChanged() bool {
	prev, next := td.prevTable.PrimaryKey, td.nextTable.PrimaryKey
	if prev == nil || next == nil {
		return (prev == nil) != (next == nil)
	}
	return td.columnList(prev.Columns) != td.columnList(next.Columns)
}

func (td *TableDiffer) columnList(cols []string) string {
	normalized := make([]string, len(cols))
	for i, c := range cols {
		normalized[i] = td.db.policy.Normalize(c)
	}
	return strings.Join(normalized, "\x00")
}

// matchByKey pairs positions with equal keys as a multiset: duplicates pair
// up in declaration order. Unmatched next positions are created and
// unmatched previous positions dropped, both in declaration order.
func matchByKey(prevKeys, nextKeys []string) (matched []MigrationPair[int], created, dropped []int) {
	queues := make(map[string][]int, len(prevKeys))
	for i, k := range prevKeys {
		queues[k] = append(queues[k], i)
	}

	consumed := make([]bool, len(prevKeys))
	for j, k := range nextKeys {
		q := queues[k]
		if len(q) == 0 {
			created = append(created, j)
			continue
		}
		matched = append(matched, NewMigrationPair(q[0], j))
		consumed[q[0]] = true
		queues[k] = q[1:]
	}

	for i, used := range consumed {
		if !used {
			dropped = append(dropped, i)
		}
	}
	return matched, created, dropped
}
