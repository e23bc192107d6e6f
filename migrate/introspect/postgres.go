package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresIntrospector implements introspection for PostgreSQL and CockroachDB.
// Only the connection's current schema is read; its tables carry the
// default (empty) namespace.
type PostgresIntrospector struct {
	db *sql.DB
}

// NewPostgresIntrospector creates an introspector over an open PostgreSQL handle
func NewPostgresIntrospector(db *sql.DB) *PostgresIntrospector {
	return &PostgresIntrospector{db: db}
}

// Introspect reads the PostgreSQL database schema
func (i *PostgresIntrospector) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	var namespace string
	if err := i.db.QueryRowContext(ctx, `SELECT current_schema()`).Scan(&namespace); err != nil {
		return nil, fmt.Errorf("%w: failed to read current schema: %v", ErrIntrospectionFailed, err)
	}

	schema := &DatabaseSchema{}

	// Enums first so columns can be linked to them
	enums, err := i.introspectEnums(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to introspect enums: %v", ErrIntrospectionFailed, err)
	}
	schema.Enums = enums

	tables, err := i.introspectTables(ctx, namespace, enums)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to introspect tables: %v", ErrIntrospectionFailed, err)
	}
	schema.Tables = tables

	views, err := i.introspectViews(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to introspect views: %v", ErrIntrospectionFailed, err)
	}
	schema.Views = views

	return schema, nil
}

// introspectViews reads all views
func (i *PostgresIntrospector) introspectViews(ctx context.Context, namespace string) ([]View, error) {
	query := `
		SELECT
			table_name,
			COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name
	`

	rows, err := i.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var view View
		if err := rows.Scan(&view.Name, &view.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		views = append(views, view)
	}

	return views, rows.Err()
}

// introspectTables reads all tables in creation order
func (i *PostgresIntrospector) introspectTables(ctx context.Context, namespace string, enums []Enum) ([]Table, error) {
	query := `
		SELECT c.relname::text
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p')
		ORDER BY c.oid
	`

	rows, err := i.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	enumNames := make(map[string]bool, len(enums))
	for _, e := range enums {
		enumNames[e.Name] = true
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		table := Table{Name: name}

		columns, err := i.introspectColumns(ctx, namespace, name, enumNames)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect columns for %s: %w", name, err)
		}
		table.Columns = columns

		pk, err := i.introspectPrimaryKey(ctx, namespace, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect primary key for %s: %w", name, err)
		}
		table.PrimaryKey = pk

		indexes, err := i.introspectIndexes(ctx, namespace, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect indexes for %s: %w", name, err)
		}
		table.Indexes = indexes

		fks, err := i.introspectForeignKeys(ctx, namespace, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect foreign keys for %s: %w", name, err)
		}
		table.ForeignKeys = fks

		tables = append(tables, table)
	}

	return tables, nil
}

// introspectColumns reads all columns for a table
func (i *PostgresIntrospector) introspectColumns(ctx context.Context, namespace, tableName string, enums map[string]bool) ([]Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default,
			is_identity,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query, namespace, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		var dataType, udtName, isNullable, isIdentity string
		var defaultValue sql.NullString
		var maxLength, numPrecision, numScale sql.NullInt64

		err := rows.Scan(
			&col.Name,
			&dataType,
			&udtName,
			&isNullable,
			&defaultValue,
			&isIdentity,
			&maxLength,
			&numPrecision,
			&numScale,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type = mapPostgresType(dataType, udtName, maxLength.Int64, numPrecision.Int64, numScale.Int64)
		col.Nullable = isNullable == "YES"
		if dataType == "USER-DEFINED" && enums[udtName] {
			col.Enum = udtName
		}

		// A sequence default is how autoincrement shows up, not a user default
		col.AutoIncrement = isIdentity == "YES" || isAutoIncrement(defaultValue.String)
		if defaultValue.Valid && defaultValue.String != "" && !col.AutoIncrement {
			v := defaultValue.String
			col.DefaultValue = &v
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// introspectPrimaryKey reads the primary key for a table
func (i *PostgresIntrospector) introspectPrimaryKey(ctx context.Context, namespace, tableName string) (*PrimaryKey, error) {
	query := `
		SELECT
			c.conname::text,
			ARRAY(
				SELECT a.attname::text
				FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			)
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE c.contype = 'p'
		  AND n.nspname = $1
		  AND t.relname = $2
	`

	var pk PrimaryKey
	err := i.db.QueryRowContext(ctx, query, namespace, tableName).Scan(&pk.Name, pq.Array(&pk.Columns))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key: %w", err)
	}

	return &pk, nil
}

// introspectIndexes reads the non-primary, column-only indexes of a table
func (i *PostgresIntrospector) introspectIndexes(ctx context.Context, namespace, tableName string) ([]Index, error) {
	query := `
		SELECT
			ic.relname::text,
			ARRAY(
				SELECT a.attname::text
				FROM unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			),
			ix.indisunique
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1
		  AND t.relname = $2
		  AND NOT ix.indisprimary
		  AND NOT (0 = ANY(ix.indkey::int2[]))
		ORDER BY ix.indexrelid
	`

	rows, err := i.db.QueryContext(ctx, query, namespace, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, pq.Array(&idx.Columns), &idx.IsUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// introspectForeignKeys reads all foreign keys for a table
func (i *PostgresIntrospector) introspectForeignKeys(ctx context.Context, namespace, tableName string) ([]ForeignKey, error) {
	query := `
		SELECT
			c.conname::text,
			ARRAY(
				SELECT a.attname::text
				FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			),
			rn.nspname::text,
			rt.relname::text,
			ARRAY(
				SELECT a.attname::text
				FROM unnest(c.confkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = c.confrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			),
			c.confupdtype::text,
			c.confdeltype::text
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class rt ON rt.oid = c.confrelid
		JOIN pg_namespace rn ON rn.oid = rt.relnamespace
		WHERE c.contype = 'f'
		  AND n.nspname = $1
		  AND t.relname = $2
		ORDER BY c.oid
	`

	rows, err := i.db.QueryContext(ctx, query, namespace, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var refNamespace, onUpdate, onDelete string

		err := rows.Scan(
			&fk.Name,
			pq.Array(&fk.Columns),
			&refNamespace,
			&fk.ReferencedTable,
			pq.Array(&fk.ReferencedColumns),
			&onUpdate,
			&onDelete,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}

		if refNamespace != namespace {
			fk.ReferencedSchema = refNamespace
		}
		fk.OnUpdate = postgresAction(onUpdate)
		fk.OnDelete = postgresAction(onDelete)

		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

// introspectEnums reads all enum types in creation order
func (i *PostgresIntrospector) introspectEnums(ctx context.Context, namespace string) ([]Enum, error) {
	query := `
		SELECT
			t.typname::text,
			array_agg(e.enumlabel::text ORDER BY e.enumsortorder)
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1
		GROUP BY t.oid, t.typname
		ORDER BY t.oid
	`

	rows, err := i.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query enums: %w", err)
	}
	defer rows.Close()

	var enums []Enum
	for rows.Next() {
		var enum Enum
		if err := rows.Scan(&enum.Name, pq.Array(&enum.Values)); err != nil {
			return nil, fmt.Errorf("failed to scan enum: %w", err)
		}
		enums = append(enums, enum)
	}

	return enums, rows.Err()
}

// postgresAction decodes pg_constraint's single-letter action codes
func postgresAction(code string) ReferentialAction {
	switch code {
	case "r":
		return Restrict
	case "c":
		return Cascade
	case "n":
		return SetNull
	case "d":
		return SetDefault
	default:
		return NoAction
	}
}

// mapPostgresType maps PostgreSQL data types to generic types
func mapPostgresType(dataType, udtName string, maxLength, precision, scale int64) string {
	switch dataType {
	case "integer", "int", "int4":
		return "INTEGER"
	case "bigint", "int8":
		return "BIGINT"
	case "smallint", "int2":
		return "SMALLINT"
	case "boolean", "bool":
		return "BOOLEAN"
	case "character varying", "varchar":
		if maxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", maxLength)
		}
		return "VARCHAR"
	case "character", "char":
		if maxLength > 0 {
			return fmt.Sprintf("CHAR(%d)", maxLength)
		}
		return "CHAR"
	case "text":
		return "TEXT"
	case "numeric", "decimal":
		if precision > 0 && scale > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
		}
		return "DECIMAL"
	case "real", "float4":
		return "REAL"
	case "double precision", "float8":
		return "DOUBLE PRECISION"
	case "timestamp without time zone", "timestamp":
		return "TIMESTAMP"
	case "timestamp with time zone", "timestamptz":
		return "TIMESTAMPTZ"
	case "date":
		return "DATE"
	case "time without time zone", "time":
		return "TIME"
	case "json":
		return "JSON"
	case "jsonb":
		return "JSONB"
	case "uuid":
		return "UUID"
	case "bytea":
		return "BYTEA"
	case "ARRAY":
		return strings.ToUpper(strings.TrimPrefix(udtName, "_")) + "[]"
	case "USER-DEFINED":
		return udtName
	default:
		return strings.ToUpper(dataType)
	}
}

// isAutoIncrement reports whether a column default draws from a sequence
func isAutoIncrement(defaultValue string) bool {
	return strings.Contains(strings.ToLower(defaultValue), "nextval(")
}
