package diff

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// Options tunes a Differ
type Options struct {
	// IgnoredTables excludes user tables by glob pattern; nil ignores nothing
	IgnoredTables *flavour.IgnoreMatcher

	// AllowAmbiguousNames resolves name collisions last-write-wins instead
	// of failing with AmbiguousNameCollisionError
	AllowAmbiguousNames bool
}

// Result holds every change between two snapshots, ready for planning
type Result struct {
	Flavour  flavour.DifferFlavour
	Policy   introspect.CasePolicy
	Previous *introspect.Snapshot
	Next     *introspect.Snapshot

	CreatedTables []introspect.TableID
	DroppedTables []introspect.TableID
	// TableDiffs lists the changed paired tables in next declaration order
	TableDiffs []*TableDiff

	CreatedEnums []introspect.EnumID
	DroppedEnums []introspect.EnumID
	EnumDiffs    []*EnumDiff

	// Collisions is only non-empty when AllowAmbiguousNames was set
	Collisions []Collision
}

// IsEmpty reports whether the snapshots are structurally equal
func (r *Result) IsEmpty() bool {
	return len(r.CreatedTables) == 0 && len(r.DroppedTables) == 0 && len(r.TableDiffs) == 0 &&
		len(r.CreatedEnums) == 0 && len(r.DroppedEnums) == 0 && len(r.EnumDiffs) == 0
}

// Differ compares two snapshots under one flavour
type Differ struct {
	flavour flavour.DifferFlavour
	opts    Options
}

// NewDiffer creates a new schema differ
func NewDiffer(f flavour.DifferFlavour, opts Options) *Differ {
	return &Differ{flavour: f, opts: opts}
}

// Diff pairs the snapshots and computes every entity change. It is a pure
// function of its inputs.
func (d *Differ) Diff(prev, next *introspect.Snapshot) (*Result, error) {
	policy := flavour.Policy(d.flavour)
	for _, s := range []struct {
		side Side
		snap *introspect.Snapshot
	}{{PreviousSide, prev}, {NextSide, next}} {
		if s.snap.Policy() == introspect.CaseInsensitive && policy == introspect.CaseSensitive {
			return nil, fmt.Errorf("%w: %s snapshot is %s, %s is %s",
				ErrPolicyMismatch, s.side, s.snap.Policy(), d.flavour.Name(), policy)
		}
	}

	db := NewDifferDatabase(prev, next, d.flavour, d.opts.IgnoredTables)

	result := &Result{
		Flavour:  d.flavour,
		Policy:   db.Policy(),
		Previous: prev,
		Next:     next,
	}

	if collisions := db.Collisions(); len(collisions) > 0 {
		if !d.opts.AllowAmbiguousNames {
			return nil, &AmbiguousNameCollisionError{Collisions: collisions}
		}
		for _, c := range collisions {
			debug.Warn("Ambiguous names resolved last-write-wins", "collision", c.String())
		}
		result.Collisions = collisions
	}

	var errs []error
	caps := d.flavour.Capabilities()

	result.CreatedTables = db.CreatedTables()
	result.DroppedTables = db.DroppedTables()

	diffs := make([]*TableDiff, 0, len(db.tables.pairs))
	for _, pair := range db.TablePairs() {
		td := NewTableDiffer(db, pair).Diff()
		if !td.IsEmpty() && d.flavour.ShouldRedefineTable(td) {
			if !caps.Has(flavour.RedefineTables) {
				errs = append(errs, &UnsupportedChangeError{
					Flavour: d.flavour.Name(),
					Table:   td.TableName(),
					Missing: flavour.Missing(caps, td.RequiredCapabilities()),
				})
				continue
			}
			td.Redefine = true
			debug.Debug("Table requires redefinition",
				"table", td.TableName(),
				"required", td.RequiredCapabilities().String(),
				"flavour", d.flavour.Name())
		}
		diffs = append(diffs, td)
	}

	if caps.Has(flavour.DropForeignKey | flavour.AddForeignKey) {
		d.recreateForeignKeysIntoRedefined(db, diffs)
	}

	for _, td := range diffs {
		if !td.IsEmpty() {
			result.TableDiffs = append(result.TableDiffs, td)
		}
	}

	result.CreatedEnums = db.CreatedEnums()
	result.DroppedEnums = db.DroppedEnums()
	for _, pair := range db.EnumPairs() {
		ed := DiffEnums(prev.Enum(pair.Previous), next.Enum(pair.Next))
		ed.Pair = pair
		if !ed.IsEmpty() {
			result.EnumDiffs = append(result.EnumDiffs, ed)
		}
	}

	enumChanges := len(result.CreatedEnums) + len(result.DroppedEnums) + len(result.EnumDiffs)
	if enumChanges > 0 && !caps.Has(flavour.Enums) {
		errs = append(errs, &UnsupportedChangeError{Flavour: d.flavour.Name(), Missing: flavour.Enums})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	debug.Debug("Diff complete",
		"createdTables", len(result.CreatedTables),
		"droppedTables", len(result.DroppedTables),
		"changedTables", len(result.TableDiffs),
		"enumChanges", enumChanges)

	return result, nil
}

// recreateForeignKeysIntoRedefined drops and recreates unchanged foreign
// keys whose target table is being rebuilt, since the original cannot be
// dropped while they point at it.
func (d *Differ) recreateForeignKeysIntoRedefined(db *DifferDatabase, diffs []*TableDiff) {
	redefined := map[introspect.TableID]bool{}
	for _, td := range diffs {
		if td.Redefine {
			redefined[td.Pair.Next] = true
		}
	}
	if len(redefined) == 0 {
		return
	}

	for _, td := range diffs {
		if td.Redefine {
			continue
		}
		for _, p := range td.keptForeignKeys {
			target := db.next.ReferencedTable(introspect.ForeignKeyID{Table: td.Pair.Next, ForeignKey: p.Next})
			if !redefined[target] {
				continue
			}
			td.CreatedForeignKeys = insertSorted(td.CreatedForeignKeys, p.Next)
			td.DroppedForeignKeys = insertSorted(td.DroppedForeignKeys, p.Previous)
		}
	}
}

func insertSorted(s []int, v int) []int {
	i := 0
	for i < len(s) && s[i] < v {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
