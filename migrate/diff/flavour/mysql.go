package flavour

// MySQLFlavour implements DifferFlavour for MySQL
type MySQLFlavour struct{}

// NewMySQLFlavour creates a new MySQL flavour
func NewMySQLFlavour() DifferFlavour {
	return &MySQLFlavour{}
}

// Name identifies the flavour
func (f *MySQLFlavour) Name() string { return "mysql" }

// LowerCasesTableNames returns true; table names fold on case-insensitive
// filesystems (lower_case_table_names)
func (f *MySQLFlavour) LowerCasesTableNames() bool { return true }

// TableShouldBeIgnored returns true if a table should be ignored
func (f *MySQLFlavour) TableShouldBeIgnored(tableName string) bool {
	return tableName == migrationsTable
}

// Capabilities returns the in-place alterations MySQL supports
func (f *MySQLFlavour) Capabilities() Capability {
	return AddColumn | AddRequiredColumn | DropColumn |
		AlterColumnType | AlterColumnNullability | AlterColumnDefault | AlterColumnAutoIncrement |
		CreateIndex | DropIndex | AddForeignKey | DropForeignKey |
		Enums | RedefineTables
}

// ShouldRedefineTable determines if a table needs to be recreated
func (f *MySQLFlavour) ShouldRedefineTable(changes TableChanges) bool {
	return ExceedsCapabilities(f.Capabilities(), changes.RequiredCapabilities())
}
