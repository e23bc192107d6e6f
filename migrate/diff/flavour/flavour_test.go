package flavour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changes struct {
	name     string
	required Capability
}

func (c changes) TableName() string                { return c.name }
func (c changes) RequiredCapabilities() Capability { return c.required }

func TestShouldRedefineTable(t *testing.T) {
	tests := []struct {
		name     string
		flavour  DifferFlavour
		required Capability
		want     bool
	}{
		{"sqlite add nullable column", NewSQLiteFlavour(), AddColumn, false},
		{"sqlite index churn", NewSQLiteFlavour(), CreateIndex | DropIndex, false},
		{"sqlite nullability", NewSQLiteFlavour(), AlterColumnNullability, true},
		{"sqlite drop column", NewSQLiteFlavour(), DropColumn, true},
		{"sqlite required column", NewSQLiteFlavour(), AddColumn | AddRequiredColumn, true},
		{"postgres nullability", NewPostgresFlavour(), AlterColumnNullability, false},
		{"postgres primary key", NewPostgresFlavour(), AlterPrimaryKey, true},
		{"postgres autoincrement", NewPostgresFlavour(), AlterColumnAutoIncrement, true},
		{"cockroach type", NewCockroachFlavour(), AlterColumnType, true},
		{"cockroach default", NewCockroachFlavour(), AlterColumnDefault, false},
		{"mysql autoincrement", NewMySQLFlavour(), AlterColumnAutoIncrement, false},
		{"mysql primary key", NewMySQLFlavour(), AlterPrimaryKey, true},
		{"nothing required", NewSQLiteFlavour(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.flavour.ShouldRedefineTable(changes{name: "t", required: tt.required})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlavourPolicies(t *testing.T) {
	assert.True(t, NewMySQLFlavour().LowerCasesTableNames())
	assert.False(t, NewPostgresFlavour().LowerCasesTableNames())
	assert.False(t, NewSQLiteFlavour().LowerCasesTableNames())

	assert.False(t, NewSQLiteFlavour().Capabilities().Has(Enums))
	assert.True(t, NewPostgresFlavour().Capabilities().Has(Enums|RedefineTables))

	for _, f := range []DifferFlavour{NewPostgresFlavour(), NewCockroachFlavour(), NewMySQLFlavour(), NewSQLiteFlavour()} {
		assert.True(t, f.TableShouldBeIgnored("_prisma_migrations"), f.Name())
		assert.False(t, f.TableShouldBeIgnored("User"), f.Name())
	}
	assert.True(t, NewSQLiteFlavour().TableShouldBeIgnored("sqlite_sequence"))
	assert.True(t, NewSQLiteFlavour().TableShouldBeIgnored("sqlite_stat1"))
	assert.False(t, NewPostgresFlavour().TableShouldBeIgnored("sqlite_sequence"))
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "none", Capability(0).String())
	assert.Equal(t, "add column, drop index", (AddColumn | DropIndex).String())
	assert.Equal(t, AlterColumnNullability, Missing(NewSQLiteFlavour().Capabilities(), AddColumn|AlterColumnNullability))
}

func TestForProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"postgresql", "postgresql"},
		{"Postgres", "postgresql"},
		{"cockroachdb", "cockroachdb"},
		{"mysql", "mysql"},
		{" sqlite3 ", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			f, err := ForProvider(tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name())
		})
	}

	_, err := ForProvider("mongodb")
	assert.ErrorIs(t, err, ErrUnknownFlavour)
}

func TestIgnoreMatcher(t *testing.T) {
	m, err := NewIgnoreMatcher([]string{"audit_*", "reporting.*", ""})
	require.NoError(t, err)

	assert.True(t, m.Match("", "audit_log"))
	assert.True(t, m.Match("reporting", "daily"))
	assert.False(t, m.Match("", "daily"))
	assert.False(t, m.Match("", "User"))
	assert.Equal(t, []string{"audit_*", "reporting.*"}, m.Patterns())

	var none *IgnoreMatcher
	assert.False(t, none.Match("", "anything"))

	_, err = NewIgnoreMatcher([]string{"[unclosed"})
	assert.Error(t, err)
}
