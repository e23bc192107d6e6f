package flavour

// PostgresFlavour implements DifferFlavour for PostgreSQL
type PostgresFlavour struct{}

// NewPostgresFlavour creates a new PostgreSQL flavour
func NewPostgresFlavour() DifferFlavour {
	return &PostgresFlavour{}
}

const postgresCapabilities = AddColumn | AddRequiredColumn | DropColumn |
	AlterColumnType | AlterColumnNullability | AlterColumnDefault |
	CreateIndex | DropIndex | AddForeignKey | DropForeignKey |
	Enums | RedefineTables

// Name identifies the flavour
func (f *PostgresFlavour) Name() string { return "postgresql" }

// LowerCasesTableNames returns false; quoted identifiers keep their case
func (f *PostgresFlavour) LowerCasesTableNames() bool { return false }

// TableShouldBeIgnored returns true if a table should be ignored
func (f *PostgresFlavour) TableShouldBeIgnored(tableName string) bool {
	return tableName == migrationsTable
}

// Capabilities returns the in-place alterations PostgreSQL supports
func (f *PostgresFlavour) Capabilities() Capability { return postgresCapabilities }

// ShouldRedefineTable determines if a table needs to be recreated
func (f *PostgresFlavour) ShouldRedefineTable(changes TableChanges) bool {
	return ExceedsCapabilities(f.Capabilities(), changes.RequiredCapabilities())
}

// CockroachFlavour implements DifferFlavour for CockroachDB. It follows
// PostgreSQL except that column types cannot change in place.
type CockroachFlavour struct {
	PostgresFlavour
}

// NewCockroachFlavour creates a new CockroachDB flavour
func NewCockroachFlavour() DifferFlavour {
	return &CockroachFlavour{}
}

// Name identifies the flavour
func (f *CockroachFlavour) Name() string { return "cockroachdb" }

// Capabilities returns the in-place alterations CockroachDB supports
func (f *CockroachFlavour) Capabilities() Capability {
	return postgresCapabilities &^ AlterColumnType
}

// ShouldRedefineTable determines if a table needs to be recreated
func (f *CockroachFlavour) ShouldRedefineTable(changes TableChanges) bool {
	return ExceedsCapabilities(f.Capabilities(), changes.RequiredCapabilities())
}
