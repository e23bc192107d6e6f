// Command schemadiff plans migrations between database schema snapshots.
package main

import (
	"context"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/prisma-schemadiff/cli/commands"
	"github.com/satishbabariya/prisma-schemadiff/cli/internal/ui"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		ui.PrintError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
