package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

// detectProvider guesses the provider from a connection string
func detectProvider(connStr string) string {
	if strings.Contains(connStr, "mysql") {
		return "mysql"
	} else if strings.Contains(connStr, "sqlite") || strings.Contains(connStr, "file:") {
		return "sqlite"
	}
	return "postgresql"
}

// normalizeProviderForDriver maps a provider name to its database/sql driver.
// PostgreSQL and CockroachDB use "postgres", SQLite uses "sqlite3".
func normalizeProviderForDriver(provider string) string {
	switch provider {
	case "postgresql", "postgres", "cockroachdb", "cockroach":
		return "postgres"
	case "sqlite":
		return "sqlite3"
	default:
		return provider
	}
}

// driverDSN converts a connection URL into what the driver accepts
func driverDSN(driver, url string) (string, error) {
	switch driver {
	case "mysql":
		dsn := strings.TrimPrefix(url, "mysql://")
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid mysql connection string: %w", err)
		}
		return cfg.FormatDSN(), nil
	case "sqlite3":
		if strings.HasPrefix(url, "file:") {
			return url, nil
		}
		dsn := strings.TrimPrefix(url, "sqlite://")
		return strings.TrimPrefix(dsn, "sqlite:"), nil
	default:
		return url, nil
	}
}

// introspectDatabase connects to url and reads its schema
func introspectDatabase(ctx context.Context, provider, url string) (*introspect.DatabaseSchema, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("no database URL given (use --url or DATABASE_URL)")
	}
	if provider == "" {
		provider = detectProvider(url)
	}

	driver := normalizeProviderForDriver(provider)
	dsn, err := driverDSN(driver, url)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	inspector, err := introspect.NewIntrospector(db, provider)
	if err != nil {
		return nil, "", err
	}

	debug.Debug("Introspecting database", "provider", provider, "driver", driver)
	schema, err := inspector.Introspect(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to introspect database: %w", err)
	}
	return schema, provider, nil
}

// providerPolicy is the name comparison policy snapshots of provider are
// validated under. Without a provider names compare exactly.
func providerPolicy(provider string) (introspect.CasePolicy, error) {
	if provider == "" {
		return introspect.CaseSensitive, nil
	}
	f, err := flavour.ForProvider(provider)
	if err != nil {
		return introspect.CaseSensitive, err
	}
	return flavour.Policy(f), nil
}
