package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MySQLIntrospector implements introspection for MySQL. Inline column
// enums are lifted into named enums called <table>_<column>.
type MySQLIntrospector struct {
	db *sql.DB
}

// NewMySQLIntrospector creates an introspector over an open MySQL handle
func NewMySQLIntrospector(db *sql.DB) *MySQLIntrospector {
	return &MySQLIntrospector{db: db}
}

// Introspect reads the MySQL database schema
func (i *MySQLIntrospector) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	var dbName string
	if err := i.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&dbName); err != nil {
		return nil, fmt.Errorf("%w: failed to get database name: %v", ErrIntrospectionFailed, err)
	}

	schema := &DatabaseSchema{}
	if err := i.introspectTables(ctx, dbName, schema); err != nil {
		return nil, fmt.Errorf("%w: failed to introspect tables: %v", ErrIntrospectionFailed, err)
	}

	views, err := i.introspectViews(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to introspect views: %v", ErrIntrospectionFailed, err)
	}
	schema.Views = views

	return schema, nil
}

// introspectTables reads all tables in creation order into schema
func (i *MySQLIntrospector) introspectTables(ctx context.Context, dbName string, schema *DatabaseSchema) error {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY create_time, table_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read tables: %w", err)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, name := range names {
		table := Table{Name: name}

		columns, enums, err := i.introspectColumns(ctx, dbName, name)
		if err != nil {
			return fmt.Errorf("failed to introspect columns for %s: %w", name, err)
		}
		table.Columns = columns
		schema.Enums = append(schema.Enums, enums...)

		pk, err := i.introspectPrimaryKey(ctx, dbName, name)
		if err != nil {
			return fmt.Errorf("failed to introspect primary key for %s: %w", name, err)
		}
		table.PrimaryKey = pk

		indexes, err := i.introspectIndexes(ctx, dbName, name)
		if err != nil {
			return fmt.Errorf("failed to introspect indexes for %s: %w", name, err)
		}
		table.Indexes = indexes

		fks, err := i.introspectForeignKeys(ctx, dbName, name)
		if err != nil {
			return fmt.Errorf("failed to introspect foreign keys for %s: %w", name, err)
		}
		table.ForeignKeys = fks

		schema.Tables = append(schema.Tables, table)
	}

	return nil
}

// introspectColumns reads all columns for a table together with the
// named enums derived from its inline enum columns
func (i *MySQLIntrospector) introspectColumns(ctx context.Context, dbName, tableName string) ([]Column, []Enum, error) {
	query := `
		SELECT
			column_name,
			column_type,
			is_nullable,
			column_default,
			extra
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query, dbName, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	var enums []Enum
	for rows.Next() {
		var col Column
		var columnType, isNullable, extra string
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &columnType, &isNullable, &defaultValue, &extra); err != nil {
			return nil, nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type = mapMySQLType(columnType)
		col.Nullable = isNullable == "YES"
		if defaultValue.Valid {
			v := defaultValue.String
			col.DefaultValue = &v
		}
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")

		if values, ok := parseMySQLEnum(columnType); ok {
			enum := Enum{Name: tableName + "_" + col.Name, Values: values}
			col.Type = "ENUM"
			col.Enum = enum.Name
			enums = append(enums, enum)
		}

		columns = append(columns, col)
	}

	return columns, enums, rows.Err()
}

// introspectPrimaryKey reads the primary key for a table
func (i *MySQLIntrospector) introspectPrimaryKey(ctx context.Context, dbName, tableName string) (*PrimaryKey, error) {
	query := `
		SELECT
			constraint_name,
			GROUP_CONCAT(column_name ORDER BY ordinal_position) AS columns
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		  AND table_name = ?
		  AND constraint_name = 'PRIMARY'
		GROUP BY constraint_name
	`

	var pk PrimaryKey
	var columnsStr string

	err := i.db.QueryRowContext(ctx, query, dbName, tableName).Scan(&pk.Name, &columnsStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key: %w", err)
	}

	pk.Columns = strings.Split(columnsStr, ",")
	return &pk, nil
}

// introspectIndexes reads all secondary indexes for a table
func (i *MySQLIntrospector) introspectIndexes(ctx context.Context, dbName, tableName string) ([]Index, error) {
	query := `
		SELECT
			index_name,
			GROUP_CONCAT(column_name ORDER BY seq_in_index) AS columns,
			MAX(non_unique) AS is_non_unique
		FROM information_schema.statistics
		WHERE table_schema = ?
		  AND table_name = ?
		  AND index_name != 'PRIMARY'
		  AND column_name IS NOT NULL
		GROUP BY index_name
		ORDER BY index_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		var columnsStr string
		var isNonUnique int

		if err := rows.Scan(&idx.Name, &columnsStr, &isNonUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}

		idx.Columns = strings.Split(columnsStr, ",")
		idx.IsUnique = isNonUnique == 0

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// introspectForeignKeys reads all foreign keys for a table
func (i *MySQLIntrospector) introspectForeignKeys(ctx context.Context, dbName, tableName string) ([]ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			GROUP_CONCAT(kcu.column_name ORDER BY kcu.ordinal_position) AS columns,
			kcu.referenced_table_schema,
			kcu.referenced_table_name,
			GROUP_CONCAT(kcu.referenced_column_name ORDER BY kcu.ordinal_position) AS referenced_columns,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.constraint_schema = rc.constraint_schema
		WHERE kcu.table_schema = ?
		  AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
		GROUP BY kcu.constraint_name, kcu.referenced_table_schema, kcu.referenced_table_name, rc.update_rule, rc.delete_rule
		ORDER BY kcu.constraint_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var columnsStr, refSchema, refColumnsStr, onUpdate, onDelete string

		err := rows.Scan(
			&fk.Name,
			&columnsStr,
			&refSchema,
			&fk.ReferencedTable,
			&refColumnsStr,
			&onUpdate,
			&onDelete,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}

		fk.Columns = strings.Split(columnsStr, ",")
		fk.ReferencedColumns = strings.Split(refColumnsStr, ",")
		if refSchema != dbName {
			fk.ReferencedSchema = refSchema
		}
		fk.OnUpdate = ReferentialAction(onUpdate).Normalize()
		fk.OnDelete = ReferentialAction(onDelete).Normalize()

		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

// introspectViews reads all views
func (i *MySQLIntrospector) introspectViews(ctx context.Context, dbName string) ([]View, error) {
	query := `
		SELECT table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name
	`

	rows, err := i.db.QueryContext(ctx, query, dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.Name, &v.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// parseMySQLEnum extracts the values of an enum('a','b') column type
func parseMySQLEnum(columnType string) ([]string, bool) {
	lower := strings.ToLower(columnType)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(columnType, ")") {
		return nil, false
	}
	body := columnType[len("enum(") : len(columnType)-1]

	var values []string
	var cur strings.Builder
	inQuote := false
	for p := 0; p < len(body); p++ {
		ch := body[p]
		switch {
		case ch == '\'' && inQuote && p+1 < len(body) && body[p+1] == '\'':
			cur.WriteByte('\'')
			p++
		case ch == '\'':
			inQuote = !inQuote
			if !inQuote {
				values = append(values, cur.String())
				cur.Reset()
			}
		case inQuote:
			cur.WriteByte(ch)
		}
	}
	return values, true
}

// mapMySQLType maps MySQL data types to generic types
func mapMySQLType(mysqlType string) string {
	lowerType := strings.ToLower(mysqlType)

	switch {
	case strings.HasPrefix(lowerType, "int(") || lowerType == "int":
		return "INT"
	case strings.HasPrefix(lowerType, "bigint"):
		return "BIGINT"
	case strings.HasPrefix(lowerType, "smallint"):
		return "SMALLINT"
	case strings.HasPrefix(lowerType, "tinyint(1)"):
		return "BOOLEAN"
	case strings.HasPrefix(lowerType, "tinyint"):
		return "TINYINT"
	case strings.HasPrefix(lowerType, "varchar"), strings.HasPrefix(lowerType, "char"), strings.HasPrefix(lowerType, "decimal"):
		return strings.ToUpper(mysqlType)
	case lowerType == "text":
		return "TEXT"
	case strings.HasPrefix(lowerType, "float"):
		return "FLOAT"
	case strings.HasPrefix(lowerType, "double"):
		return "DOUBLE"
	case strings.HasPrefix(lowerType, "timestamp"):
		return "TIMESTAMP"
	case strings.HasPrefix(lowerType, "datetime"):
		return "DATETIME"
	case lowerType == "date":
		return "DATE"
	case lowerType == "time":
		return "TIME"
	case lowerType == "json":
		return "JSON"
	case strings.HasSuffix(lowerType, "blob"):
		return "BLOB"
	default:
		return strings.ToUpper(mysqlType)
	}
}
