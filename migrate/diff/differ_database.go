// Package diff pairs the entities of two schema snapshots and computes the
// per-entity changes between them.
package diff

import (
	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// DifferDatabase is the pairing index between two snapshots. It is built in
// one pass over each side; created, dropped and paired sets are all derived
// from the same name map.
type DifferDatabase struct {
	flavour flavour.DifferFlavour
	policy  introspect.CasePolicy
	ignore  *flavour.IgnoreMatcher

	prev *introspect.Snapshot
	next *introspect.Snapshot

	tables nameIndex
	// columns is keyed by the next-side table of each pair
	columns map[introspect.TableID]nameIndex
	enums   nameIndex

	collisions []Collision
}

// NewDifferDatabase builds the pairing index. ignore may be nil.
func NewDifferDatabase(prev, next *introspect.Snapshot, f flavour.DifferFlavour, ignore *flavour.IgnoreMatcher) *DifferDatabase {
	db := &DifferDatabase{
		flavour: f,
		policy:  flavour.Policy(f),
		ignore:  ignore,
		prev:    prev,
		next:    next,
	}

	db.buildTables()
	db.buildColumns()
	db.buildEnums()

	debug.Debug("Built pairing index",
		"flavour", f.Name(),
		"policy", db.policy.String(),
		"created", len(db.tables.created),
		"dropped", len(db.tables.dropped),
		"paired", len(db.tables.pairs),
		"collisions", len(db.collisions))

	return db
}

func (db *DifferDatabase) tableKeys(s *introspect.Snapshot) []string {
	tables := s.Tables()
	keys := make([]string, len(tables))
	for i := range tables {
		t := &tables[i]
		if db.flavour.TableShouldBeIgnored(t.Name) || db.ignore.Match(t.Schema, t.Name) {
			keys[i] = ignoredKey
			continue
		}
		keys[i] = db.policy.Normalize(t.Schema) + "." + db.policy.Normalize(t.Name)
	}
	return keys
}

func (db *DifferDatabase) buildTables() {
	db.tables = buildNameIndex(db.tableKeys(db.prev), db.tableKeys(db.next))

	prevTables, nextTables := db.prev.Tables(), db.next.Tables()
	for _, group := range db.tables.prevCollisions {
		db.collisions = append(db.collisions, Collision{Side: PreviousSide, Kind: TableEntity, Names: namesOf(group, func(i int) string { return prevTables[i].QualifiedName() })})
	}
	for _, group := range db.tables.nextCollisions {
		db.collisions = append(db.collisions, Collision{Side: NextSide, Kind: TableEntity, Names: namesOf(group, func(i int) string { return nextTables[i].QualifiedName() })})
	}
}

func (db *DifferDatabase) buildColumns() {
	db.columns = make(map[introspect.TableID]nameIndex, len(db.tables.pairs))

	for _, p := range db.tables.pairs {
		prevTable := db.prev.Table(introspect.TableID(p.Previous))
		nextTable := db.next.Table(introspect.TableID(p.Next))

		idx := buildNameIndex(db.columnKeys(prevTable), db.columnKeys(nextTable))
		for _, group := range idx.prevCollisions {
			db.collisions = append(db.collisions, Collision{Side: PreviousSide, Kind: ColumnEntity, Table: prevTable.QualifiedName(), Names: namesOf(group, func(i int) string { return prevTable.Columns[i].Name })})
		}
		for _, group := range idx.nextCollisions {
			db.collisions = append(db.collisions, Collision{Side: NextSide, Kind: ColumnEntity, Table: nextTable.QualifiedName(), Names: namesOf(group, func(i int) string { return nextTable.Columns[i].Name })})
		}
		db.columns[introspect.TableID(p.Next)] = idx
	}
}

func (db *DifferDatabase) columnKeys(t *introspect.Table) []string {
	keys := make([]string, len(t.Columns))
	for i := range t.Columns {
		keys[i] = db.policy.Normalize(t.Columns[i].Name)
	}
	return keys
}

func (db *DifferDatabase) enumKeys(s *introspect.Snapshot) []string {
	enums := s.Enums()
	keys := make([]string, len(enums))
	for i := range enums {
		keys[i] = db.policy.Normalize(enums[i].Name)
	}
	return keys
}

func (db *DifferDatabase) buildEnums() {
	db.enums = buildNameIndex(db.enumKeys(db.prev), db.enumKeys(db.next))

	prevEnums, nextEnums := db.prev.Enums(), db.next.Enums()
	for _, group := range db.enums.prevCollisions {
		db.collisions = append(db.collisions, Collision{Side: PreviousSide, Kind: EnumEntity, Names: namesOf(group, func(i int) string { return prevEnums[i].Name })})
	}
	for _, group := range db.enums.nextCollisions {
		db.collisions = append(db.collisions, Collision{Side: NextSide, Kind: EnumEntity, Names: namesOf(group, func(i int) string { return nextEnums[i].Name })})
	}
}

// Flavour returns the flavour the index was built with
func (db *DifferDatabase) Flavour() flavour.DifferFlavour { return db.flavour }

// Policy returns the name comparison policy in effect
func (db *DifferDatabase) Policy() introspect.CasePolicy { return db.policy }

// Previous returns the previous snapshot
func (db *DifferDatabase) Previous() *introspect.Snapshot { return db.prev }

// Next returns the next snapshot
func (db *DifferDatabase) Next() *introspect.Snapshot { return db.next }

// CreatedTables returns next-side tables without a previous counterpart,
// in next declaration order
func (db *DifferDatabase) CreatedTables() []introspect.TableID {
	return toTableIDs(db.tables.created)
}

// DroppedTables returns previous-side tables without a next counterpart,
// in previous declaration order
func (db *DifferDatabase) DroppedTables() []introspect.TableID {
	return toTableIDs(db.tables.dropped)
}

// TablePairs returns tables present on both sides, in next declaration order
func (db *DifferDatabase) TablePairs() []MigrationPair[introspect.TableID] {
	out := make([]MigrationPair[introspect.TableID], len(db.tables.pairs))
	for i, p := range db.tables.pairs {
		out[i] = MapPair(p, func(v int) introspect.TableID { return introspect.TableID(v) })
	}
	return out
}

// CreatedColumns returns the next-side column positions of tp without a
// previous counterpart
func (db *DifferDatabase) CreatedColumns(tp MigrationPair[introspect.TableID]) []int {
	return db.columns[tp.Next].created
}

// DroppedColumns returns the previous-side column positions of tp without a
// next counterpart
func (db *DifferDatabase) DroppedColumns(tp MigrationPair[introspect.TableID]) []int {
	return db.columns[tp.Next].dropped
}

// ColumnPairs returns the column positions of tp present on both sides
func (db *DifferDatabase) ColumnPairs(tp MigrationPair[introspect.TableID]) []MigrationPair[int] {
	return db.columns[tp.Next].pairs
}

// CreatedEnums returns next-side enums without a previous counterpart
func (db *DifferDatabase) CreatedEnums() []introspect.EnumID {
	return toEnumIDs(db.enums.created)
}

// DroppedEnums returns previous-side enums without a next counterpart
func (db *DifferDatabase) DroppedEnums() []introspect.EnumID {
	return toEnumIDs(db.enums.dropped)
}

// EnumPairs returns enums present on both sides
func (db *DifferDatabase) EnumPairs() []MigrationPair[introspect.EnumID] {
	out := make([]MigrationPair[introspect.EnumID], len(db.enums.pairs))
	for i, p := range db.enums.pairs {
		out[i] = MapPair(p, func(v int) introspect.EnumID { return introspect.EnumID(v) })
	}
	return out
}

// Collisions returns every name collision found while indexing
func (db *DifferDatabase) Collisions() []Collision {
	return db.collisions
}

// ignoredKey marks entities that never enter the index
const ignoredKey = "\x00"

// nameIndex is the pairing of one entity kind. Positions refer to the
// previous or next side's declaration order.
type nameIndex struct {
	created []int
	dropped []int
	pairs   []MigrationPair[int]

	prevCollisions [][]int
	nextCollisions [][]int
}

// buildNameIndex pairs entities by key. Each side is walked once into the
// shared map; a later entity replaces an earlier one with the same key and
// the group is reported as a collision.
func buildNameIndex(prevKeys, nextKeys []string) nameIndex {
	entries := make(map[string]indexPair, len(prevKeys)+len(nextKeys))
	var idx nameIndex

	record := func(groups map[string]int, out *[][]int, key string, earlier, later int) {
		g, ok := groups[key]
		if !ok {
			g = len(*out)
			groups[key] = g
			*out = append(*out, []int{earlier})
		}
		(*out)[g] = append((*out)[g], later)
	}

	prevGroups := map[string]int{}
	for i, k := range prevKeys {
		if k == ignoredKey {
			continue
		}
		e, ok := entries[k]
		if !ok {
			e = newIndexPair()
		}
		if e.prev >= 0 {
			record(prevGroups, &idx.prevCollisions, k, e.prev, i)
		}
		e.prev = i
		entries[k] = e
	}

	nextGroups := map[string]int{}
	for j, k := range nextKeys {
		if k == ignoredKey {
			continue
		}
		e, ok := entries[k]
		if !ok {
			e = newIndexPair()
		}
		if e.next >= 0 {
			record(nextGroups, &idx.nextCollisions, k, e.next, j)
		}
		e.next = j
		entries[k] = e
	}

	for j, k := range nextKeys {
		if k == ignoredKey {
			continue
		}
		e := entries[k]
		if e.next != j {
			continue
		}
		if e.prev >= 0 {
			idx.pairs = append(idx.pairs, NewMigrationPair(e.prev, j))
		} else {
			idx.created = append(idx.created, j)
		}
	}

	for i, k := range prevKeys {
		if k == ignoredKey {
			continue
		}
		if e := entries[k]; e.prev == i && e.next < 0 {
			idx.dropped = append(idx.dropped, i)
		}
	}

	return idx
}

func namesOf(group []int, name func(int) string) []string {
	out := make([]string, len(group))
	for i, g := range group {
		out[i] = name(g)
	}
	return out
}

func toTableIDs(in []int) []introspect.TableID {
	out := make([]introspect.TableID, len(in))
	for i, v := range in {
		out[i] = introspect.TableID(v)
	}
	return out
}

func toEnumIDs(in []int) []introspect.EnumID {
	out := make([]introspect.EnumID, len(in))
	for i, v := range in {
		out[i] = introspect.EnumID(v)
	}
	return out
}
