package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

func strPtr(s string) *string { return &s }

func library() *introspect.DatabaseSchema {
	return &introspect.DatabaseSchema{
		Tables: []introspect.Table{
			{
				Name: "Author",
				Columns: []introspect.Column{
					{Name: "id", Type: "INTEGER"},
					{Name: "name", Type: "TEXT"},
				},
				PrimaryKey: &introspect.PrimaryKey{Columns: []string{"id"}},
			},
			{
				Name: "Book",
				Columns: []introspect.Column{
					{Name: "id", Type: "INTEGER"},
					{Name: "authorId", Type: "INTEGER"},
					{Name: "title", Type: "TEXT"},
				},
				PrimaryKey: &introspect.PrimaryKey{Columns: []string{"id"}},
				Indexes: []introspect.Index{
					{Name: "Book_title_idx", Columns: []string{"title"}},
				},
				ForeignKeys: []introspect.ForeignKey{{
					Name:              "Book_authorId_fkey",
					Columns:           []string{"authorId"},
					ReferencedTable:   "Author",
					ReferencedColumns: []string{"id"},
				}},
			},
		},
	}
}

type stepRef struct {
	Kind  StepKind
	Table string
}

func refs(plan *MigrationPlan) []stepRef {
	out := make([]stepRef, len(plan.Steps))
	for i, s := range plan.Steps {
		out[i] = stepRef{Kind: s.Kind(), Table: s.Table()}
		if out[i].Table == "" {
			switch e := s.(type) {
			case *CreateEnum:
				out[i].Table = e.Enum.Name
			case *DropEnum:
				out[i].Table = e.Enum.Name
			case *AlterEnum:
				out[i].Table = e.Next.Name
			}
		}
	}
	return out
}

func mustPlan(t *testing.T, f flavour.DifferFlavour, prev, next *introspect.DatabaseSchema) *MigrationPlan {
	t.Helper()
	plan, err := planSchemas(f, prev, next)
	require.NoError(t, err)
	require.NoError(t, applyPlan(f, prev, next, plan))
	return plan
}

func TestPlanIdenticalSchemas(t *testing.T) {
	for _, f := range []flavour.DifferFlavour{
		flavour.NewPostgresFlavour(), flavour.NewCockroachFlavour(), flavour.NewMySQLFlavour(), flavour.NewSQLiteFlavour(),
	} {
		t.Run(f.Name(), func(t *testing.T) {
			plan := mustPlan(t, f, library(), library())
			assert.True(t, plan.IsEmpty())
			assert.Equal(t, plan.From, plan.To)
			assert.Equal(t, f.Name(), plan.Flavour)
		})
	}
}

func TestPlanEnumBeforeColumn(t *testing.T) {
	prev := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name:    "User",
		Columns: []introspect.Column{{Name: "id", Type: "INTEGER"}},
	}}}
	next := &introspect.DatabaseSchema{
		Enums: []introspect.Enum{{Name: "Role", Values: []string{"USER", "ADMIN"}}},
		Tables: []introspect.Table{{
			Name: "User",
			Columns: []introspect.Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "role", Type: "Role", Enum: "Role", DefaultValue: strPtr("'USER'")},
			},
		}},
	}

	plan := mustPlan(t, flavour.NewPostgresFlavour(), prev, next)
	assert.Equal(t, []stepRef{
		{KindCreateEnum, "Role"},
		{KindAddColumn, "User"},
	}, refs(plan))
	assert.False(t, plan.Destructive())
	assert.Empty(t, plan.Warnings())
}

func TestPlanRedefinesOnSQLite(t *testing.T) {
	prev := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name:    "User",
		Columns: []introspect.Column{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}},
		Indexes: []introspect.Index{{Name: "User_name_key", Columns: []string{"name"}, IsUnique: true}},
	}}}
	next := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name:    "User",
		Columns: []introspect.Column{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT", Nullable: true}},
		Indexes: []introspect.Index{{Name: "User_name_key", Columns: []string{"name"}, IsUnique: true}},
	}}}

	plan := mustPlan(t, flavour.NewSQLiteFlavour(), prev, next)
	require.Equal(t, []stepRef{
		{KindRedefineTable, "User"},
		{KindCreateIndex, "User"},
	}, refs(plan))

	redefine := plan.Steps[0].(*RedefineTable)
	assert.Equal(t, "new_User", redefine.ShadowName)
	assert.Equal(t, []ColumnCopy{{From: "id", To: "id"}, {From: "name", To: "name"}}, redefine.CopyColumns)
	assert.Empty(t, redefine.Next.Indexes)
	assert.Equal(t, []RedefinePhase{PhaseCreateShadow, PhaseCopyRows, PhaseDropOriginal, PhaseRenameShadow}, redefine.Phases())
	assert.False(t, plan.Destructive())
}

func TestPlanRedefineDroppingColumnWarns(t *testing.T) {
	next := library()
	next.Tables[0].Columns = next.Tables[0].Columns[:1]

	plan := mustPlan(t, flavour.NewSQLiteFlavour(), library(), next)
	require.Len(t, plan.Steps, 1)

	redefine := plan.Steps[0].(*RedefineTable)
	assert.Equal(t, []string{"name"}, redefine.DroppedColumns())
	assert.True(t, plan.Destructive())
	require.Len(t, plan.Warnings(), 1)
	assert.Contains(t, plan.Warnings()[0], "`name`")
}

func TestPlanCreateTables(t *testing.T) {
	empty := &introspect.DatabaseSchema{}

	t.Run("postgres adds foreign keys last", func(t *testing.T) {
		plan := mustPlan(t, flavour.NewPostgresFlavour(), empty, library())
		assert.Equal(t, []stepRef{
			{KindCreateTable, "Author"},
			{KindCreateTable, "Book"},
			{KindCreateIndex, "Book"},
			{KindCreateForeignKey, "Book"},
		}, refs(plan))

		book := plan.Steps[1].(*CreateTable)
		assert.Empty(t, book.Definition.ForeignKeys)
		assert.Empty(t, book.Definition.Indexes)
	})

	t.Run("sqlite creates referenced tables first", func(t *testing.T) {
		next := library()
		next.Tables[0], next.Tables[1] = next.Tables[1], next.Tables[0]

		plan := mustPlan(t, flavour.NewSQLiteFlavour(), empty, next)
		assert.Equal(t, []stepRef{
			{KindCreateTable, "Author"},
			{KindCreateTable, "Book"},
			{KindCreateIndex, "Book"},
		}, refs(plan))

		book := plan.Steps[1].(*CreateTable)
		assert.Len(t, book.Definition.ForeignKeys, 1)
	})
}

func TestPlanMixedCaseReferenceOnMySQL(t *testing.T) {
	mysql := flavour.NewMySQLFlavour()
	s := library()
	s.Tables[1].ForeignKeys[0].ReferencedTable = "author"
	s.Tables[1].ForeignKeys[0].ReferencedColumns = []string{"ID"}

	plan := mustPlan(t, mysql, s, s)
	assert.True(t, plan.IsEmpty())

	plan = mustPlan(t, mysql, &introspect.DatabaseSchema{}, s)
	assert.Equal(t, []stepRef{
		{KindCreateTable, "Author"},
		{KindCreateTable, "Book"},
		{KindCreateIndex, "Book"},
		{KindCreateForeignKey, "Book"},
	}, refs(plan))

	_, err := planSchemas(flavour.NewPostgresFlavour(), s, s)
	assert.ErrorIs(t, err, introspect.ErrDanglingReference)
}

func namespaced() *introspect.DatabaseSchema {
	return &introspect.DatabaseSchema{Tables: []introspect.Table{
		{
			Schema:     "auth",
			Name:       "users",
			Columns:    []introspect.Column{{Name: "id", Type: "INTEGER"}},
			PrimaryKey: &introspect.PrimaryKey{Columns: []string{"id"}},
		},
		{
			Schema:     "app",
			Name:       "users",
			Columns:    []introspect.Column{{Name: "id", Type: "INTEGER"}, {Name: "authId", Type: "INTEGER"}},
			PrimaryKey: &introspect.PrimaryKey{Columns: []string{"id"}},
		},
	}}
}

func TestPlanNamespacedTables(t *testing.T) {
	pg := flavour.NewPostgresFlavour()
	next := namespaced()
	next.Tables[1].ForeignKeys = []introspect.ForeignKey{{
		Name:              "users_authId_fkey",
		Columns:           []string{"authId"},
		ReferencedSchema:  "auth",
		ReferencedTable:   "users",
		ReferencedColumns: []string{"id"},
	}}

	t.Run("cross-schema foreign key", func(t *testing.T) {
		plan := mustPlan(t, pg, namespaced(), next)
		assert.Equal(t, []stepRef{{KindCreateForeignKey, "app.users"}}, refs(plan))
		assert.Equal(t, "Create foreign key users_authId_fkey on app.users (authId) -> auth.users (id)",
			plan.Steps[0].Description())
	})

	t.Run("same name in two schemas", func(t *testing.T) {
		assert.True(t, mustPlan(t, pg, next, next).IsEmpty())

		plan := mustPlan(t, pg, &introspect.DatabaseSchema{}, next)
		assert.Equal(t, []StepKind{KindCreateTable, KindCreateTable, KindCreateForeignKey}, kinds(plan))
	})

	t.Run("dropping one namespace keeps the other", func(t *testing.T) {
		prev := namespaced()
		target := &introspect.DatabaseSchema{Tables: prev.Tables[1:]}
		plan := mustPlan(t, pg, prev, target)
		assert.Equal(t, []stepRef{{KindDropTable, "auth.users"}}, refs(plan))
	})
}

func TestPlanDropTables(t *testing.T) {
	empty := &introspect.DatabaseSchema{}

	t.Run("postgres drops foreign keys first", func(t *testing.T) {
		plan := mustPlan(t, flavour.NewPostgresFlavour(), library(), empty)
		assert.Equal(t, []stepRef{
			{KindDropForeignKey, "Book"},
			{KindDropTable, "Author"},
			{KindDropTable, "Book"},
		}, refs(plan))
		assert.True(t, plan.Destructive())
		assert.Len(t, plan.Warnings(), 2)
	})

	t.Run("sqlite drops referencing tables first", func(t *testing.T) {
		plan := mustPlan(t, flavour.NewSQLiteFlavour(), library(), empty)
		assert.Equal(t, []stepRef{
			{KindDropTable, "Book"},
			{KindDropTable, "Author"},
		}, refs(plan))
	})
}

func TestPlanBreaksForeignKeyCycle(t *testing.T) {
	prev := &introspect.DatabaseSchema{Tables: []introspect.Table{
		{
			Name:        "A",
			Columns:     []introspect.Column{{Name: "id", Type: "INTEGER"}, {Name: "b", Type: "INTEGER"}},
			ForeignKeys: []introspect.ForeignKey{{Columns: []string{"b"}, ReferencedTable: "B", ReferencedColumns: []string{"id"}}},
		},
		{
			Name:        "B",
			Columns:     []introspect.Column{{Name: "id", Type: "INTEGER"}, {Name: "a", Type: "INTEGER"}},
			ForeignKeys: []introspect.ForeignKey{{Columns: []string{"a"}, ReferencedTable: "A", ReferencedColumns: []string{"id"}}},
		},
	}}

	plan, err := planSchemas(flavour.NewSQLiteFlavour(), prev, &introspect.DatabaseSchema{})
	require.NoError(t, err)
	assert.Equal(t, []stepRef{
		{KindDropTable, "A"},
		{KindDropTable, "B"},
	}, refs(plan))
}

func TestPlanColumnChanges(t *testing.T) {
	prev := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name: "T",
		Columns: []introspect.Column{
			{Name: "id", Type: "INTEGER"},
			{Name: "a", Type: "TEXT"},
			{Name: "b", Type: "INTEGER"},
		},
		Indexes: []introspect.Index{{Name: "T_a_idx", Columns: []string{"a"}}},
	}}}
	next := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name: "T",
		Columns: []introspect.Column{
			{Name: "id", Type: "INTEGER"},
			{Name: "b", Type: "BIGINT"},
			{Name: "c", Type: "TEXT", Nullable: true},
		},
		Indexes: []introspect.Index{{Name: "T_c_idx", Columns: []string{"c"}}},
	}}}

	plan := mustPlan(t, flavour.NewPostgresFlavour(), prev, next)
	assert.Equal(t, []StepKind{KindDropIndex, KindDropColumn, KindAlterColumn, KindAddColumn, KindCreateIndex}, kinds(plan))

	alter := plan.Steps[2].(*AlterColumn)
	assert.True(t, alter.IsDestructive())
	assert.Equal(t, "BIGINT", alter.Next.Type)
}

func TestPlanSameNameIndexReplaced(t *testing.T) {
	prev := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name:    "T",
		Columns: []introspect.Column{{Name: "a", Type: "TEXT"}, {Name: "b", Type: "TEXT"}},
		Indexes: []introspect.Index{{Name: "T_idx", Columns: []string{"a"}}},
	}}}
	next := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name:    "T",
		Columns: []introspect.Column{{Name: "a", Type: "TEXT"}, {Name: "b", Type: "TEXT"}},
		Indexes: []introspect.Index{{Name: "T_idx", Columns: []string{"b"}}},
	}}}

	plan := mustPlan(t, flavour.NewPostgresFlavour(), prev, next)
	assert.Equal(t, []StepKind{KindDropIndex, KindCreateIndex}, kinds(plan))
}

func TestPlanRecreatesForeignKeysAroundRedefinition(t *testing.T) {
	next := library()
	next.Tables[0].PrimaryKey = &introspect.PrimaryKey{Columns: []string{"id", "name"}}

	plan := mustPlan(t, flavour.NewPostgresFlavour(), library(), next)
	assert.Equal(t, []stepRef{
		{KindDropForeignKey, "Book"},
		{KindRedefineTable, "Author"},
		{KindCreateForeignKey, "Book"},
	}, refs(plan))
}

func TestPlanDropsEnumAfterUsers(t *testing.T) {
	prev := &introspect.DatabaseSchema{
		Enums: []introspect.Enum{{Name: "Mood", Values: []string{"HAPPY", "SAD"}}},
		Tables: []introspect.Table{{
			Name:    "Person",
			Columns: []introspect.Column{{Name: "id", Type: "INTEGER"}, {Name: "mood", Type: "Mood", Enum: "Mood"}},
		}},
	}
	next := &introspect.DatabaseSchema{Tables: []introspect.Table{{
		Name:    "Person",
		Columns: []introspect.Column{{Name: "id", Type: "INTEGER"}},
	}}}

	plan := mustPlan(t, flavour.NewPostgresFlavour(), prev, next)
	assert.Equal(t, []stepRef{
		{KindDropColumn, "Person"},
		{KindDropEnum, "Mood"},
	}, refs(plan))
	assert.Len(t, plan.Warnings(), 2)
}

func TestPlanAlterEnum(t *testing.T) {
	prev := &introspect.DatabaseSchema{Enums: []introspect.Enum{{Name: "Mood", Values: []string{"HAPPY", "SAD"}}}}
	next := &introspect.DatabaseSchema{Enums: []introspect.Enum{{Name: "Mood", Values: []string{"HAPPY", "CALM"}}}}

	plan := mustPlan(t, flavour.NewPostgresFlavour(), prev, next)
	require.Len(t, plan.Steps, 1)

	alter := plan.Steps[0].(*AlterEnum)
	assert.Equal(t, []string{"CALM"}, alter.Added)
	assert.Equal(t, []string{"SAD"}, alter.Removed)
	assert.True(t, plan.Destructive())
	assert.Equal(t, "Alter enum Mood (add CALM; remove SAD)", alter.Description())
}

func TestMigrationPlanJSON(t *testing.T) {
	plan := mustPlan(t, flavour.NewPostgresFlavour(), &introspect.DatabaseSchema{}, library())

	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var decoded struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Flavour string `json:"flavour"`
		Steps   []struct {
			Kind        StepKind        `json:"kind"`
			Description string          `json:"description"`
			Step        json.RawMessage `json:"step"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, plan.From, decoded.From)
	assert.Equal(t, plan.To, decoded.To)
	assert.Equal(t, "postgresql", decoded.Flavour)
	require.Len(t, decoded.Steps, 4)
	assert.Equal(t, KindCreateTable, decoded.Steps[0].Kind)
	assert.Equal(t, "Create table Author", decoded.Steps[0].Description)

	var create CreateTable
	require.NoError(t, json.Unmarshal(decoded.Steps[0].Step, &create))
	assert.Equal(t, "Author", create.Definition.Name)
}

func kinds(plan *MigrationPlan) []StepKind {
	out := make([]StepKind, len(plan.Steps))
	for i, s := range plan.Steps {
		out[i] = s.Kind()
	}
	return out
}
