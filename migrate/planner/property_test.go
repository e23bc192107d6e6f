package planner

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

var (
	// tablePool repeats "user" in two namespaces so qualified pairing is
	// exercised alongside unqualified names.
	tablePool = []struct{ schema, name string }{
		{"", "user"}, {"", "post"}, {"", "tag"}, {"auth", "user"}, {"app", "note"},
	}
	enumPool  = []string{"Mood", "Role"}
	labelPool = []string{"A", "B", "C"}
)

// randomSchema builds a valid schema from seed. Small pools keep the
// chance of overlap between two generated schemas high.
func randomSchema(seed int64, withEnums bool) *introspect.DatabaseSchema {
	r := rand.New(rand.NewSource(seed))
	s := &introspect.DatabaseSchema{}

	if withEnums {
		for _, name := range enumPool {
			if r.Intn(2) == 0 {
				continue
			}
			labels := slices.Clone(labelPool)
			r.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
			s.Enums = append(s.Enums, introspect.Enum{Name: name, Values: labels[:1+r.Intn(len(labels))]})
		}
	}

	var picked []introspect.Table
	for _, p := range tablePool {
		if r.Intn(5) < 3 {
			picked = append(picked, introspect.Table{Schema: p.schema, Name: p.name})
		}
	}
	r.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	for _, t := range picked {
		name := t.Name
		if t.Schema != "" {
			name = t.Schema + "_" + t.Name
		}
		t.Columns = []introspect.Column{{Name: "id", Type: "INTEGER"}}
		pk := []string{"id"}

		if r.Intn(2) == 0 {
			col := introspect.Column{Name: "title", Type: "TEXT", Nullable: r.Intn(2) == 0}
			if r.Intn(3) == 0 {
				col.DefaultValue = strPtr("'untitled'")
			}
			t.Columns = append(t.Columns, col)
		}
		if r.Intn(2) == 0 {
			typ := "INTEGER"
			if r.Intn(3) == 0 {
				typ = "BIGINT"
			}
			t.Columns = append(t.Columns, introspect.Column{Name: "score", Type: typ, Nullable: true})
			if r.Intn(6) == 0 {
				pk = append(pk, "score")
			}
		}
		if len(s.Enums) > 0 && r.Intn(2) == 0 {
			e := s.Enums[r.Intn(len(s.Enums))].Name
			t.Columns = append(t.Columns, introspect.Column{Name: "kind", Type: e, Enum: e, Nullable: true})
		}
		if r.Intn(2) == 0 {
			t.Columns = append(t.Columns, introspect.Column{Name: "ref", Type: "INTEGER", Nullable: true})
			target := picked[r.Intn(len(picked))]
			// An unset referenced schema means the owner's, so an unqualified
			// table cannot be referenced from a namespaced one.
			if r.Intn(4) < 3 && (target.Schema != "" || t.Schema == "") {
				fk := introspect.ForeignKey{
					Name:              name + "_ref_fkey",
					Columns:           []string{"ref"},
					ReferencedTable:   target.Name,
					ReferencedColumns: []string{"id"},
				}
				if target.Schema != t.Schema || r.Intn(2) == 0 {
					fk.ReferencedSchema = target.Schema
				}
				if r.Intn(3) == 0 {
					fk.OnDelete = introspect.Cascade
				}
				t.ForeignKeys = append(t.ForeignKeys, fk)
			}
		}

		for _, col := range t.Columns[1:] {
			if r.Intn(3) != 0 {
				continue
			}
			idx := introspect.Index{Name: name + "_" + col.Name + "_idx", Columns: []string{col.Name}}
			if r.Intn(2) == 0 {
				idx.Name = name + "_" + col.Name + "_key"
				idx.IsUnique = true
			}
			t.Indexes = append(t.Indexes, idx)
		}

		t.PrimaryKey = &introspect.PrimaryKey{Columns: pk}
		s.Tables = append(s.Tables, t)
	}
	return s
}

func propertyFlavours() []flavour.DifferFlavour {
	return []flavour.DifferFlavour{
		flavour.NewPostgresFlavour(),
		flavour.NewCockroachFlavour(),
		flavour.NewMySQLFlavour(),
		flavour.NewSQLiteFlavour(),
	}
}

func TestPlannerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	for _, f := range propertyFlavours() {
		enums := f.Capabilities().Has(flavour.Enums)

		properties.Property(f.Name()+": planning a schema against itself is empty", prop.ForAll(
			func(seed int64) bool {
				s := randomSchema(seed, enums)
				plan, err := planSchemas(f, s, randomSchema(seed, enums))
				return err == nil && plan.IsEmpty()
			},
			gen.Int64(),
		))

		properties.Property(f.Name()+": plans are deterministic", prop.ForAll(
			func(a, b int64) bool {
				first, err := planSchemas(f, randomSchema(a, enums), randomSchema(b, enums))
				if err != nil {
					return false
				}
				second, err := planSchemas(f, randomSchema(a, enums), randomSchema(b, enums))
				if err != nil {
					return false
				}
				return slices.Equal(describe(first), describe(second))
			},
			gen.Int64(), gen.Int64(),
		))

		properties.Property(f.Name()+": applying the plan reaches the target in a valid order", prop.ForAll(
			func(a, b int64) (bool, error) {
				prev, next := randomSchema(a, enums), randomSchema(b, enums)
				plan, err := planSchemas(f, prev, next)
				if err != nil {
					return false, err
				}
				if err := applyPlan(f, prev, next, plan); err != nil {
					return false, err
				}
				return true, nil
			},
			gen.Int64(), gen.Int64(),
		))
	}

	properties.TestingRun(t)
}

func describe(plan *MigrationPlan) []string {
	out := make([]string, len(plan.Steps))
	for i, s := range plan.Steps {
		out[i] = s.Description()
	}
	return out
}
