package flavour

import "strings"

// SQLiteFlavour implements DifferFlavour for SQLite
type SQLiteFlavour struct{}

// NewSQLiteFlavour creates a new SQLite flavour
func NewSQLiteFlavour() DifferFlavour {
	return &SQLiteFlavour{}
}

// Name identifies the flavour
func (f *SQLiteFlavour) Name() string { return "sqlite" }

// LowerCasesTableNames returns false
func (f *SQLiteFlavour) LowerCasesTableNames() bool { return false }

// TableShouldBeIgnored returns true for the migrations table and SQLite's
// own sequence and statistics tables
func (f *SQLiteFlavour) TableShouldBeIgnored(tableName string) bool {
	return tableName == migrationsTable ||
		tableName == "sqlite_sequence" ||
		strings.HasPrefix(tableName, "sqlite_stat")
}

// Capabilities returns the in-place alterations SQLite supports. ALTER TABLE
// can only add nullable or defaulted columns; everything else is a rebuild.
func (f *SQLiteFlavour) Capabilities() Capability {
	return AddColumn | CreateIndex | DropIndex | RedefineTables
}

// ShouldRedefineTable determines if a table needs to be recreated
func (f *SQLiteFlavour) ShouldRedefineTable(changes TableChanges) bool {
	return ExceedsCapabilities(f.Capabilities(), changes.RequiredCapabilities())
}
