package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// SQLiteIntrospector implements introspection for SQLite
type SQLiteIntrospector struct {
	db *sql.DB
}

// NewSQLiteIntrospector creates an introspector over an open SQLite handle
func NewSQLiteIntrospector(db *sql.DB) *SQLiteIntrospector {
	return &SQLiteIntrospector{db: db}
}

// Introspect reads the SQLite database schema
func (i *SQLiteIntrospector) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	tables, err := i.introspectTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntrospectionFailed, err)
	}

	views, err := i.introspectViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntrospectionFailed, err)
	}

	schema := &DatabaseSchema{Tables: tables, Views: views}
	resolveImplicitReferences(schema)
	return schema, nil
}

// introspectTables reads all tables in creation order
func (i *SQLiteIntrospector) introspectTables(ctx context.Context) ([]Table, error) {
	query := `
		SELECT name, COALESCE(sql, '')
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	type tableRow struct {
		name string
		ddl  string
	}
	var found []tableRow
	for rows.Next() {
		var r tableRow
		if err := rows.Scan(&r.name, &r.ddl); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(found))
	for _, r := range found {
		table := Table{Name: r.name}

		columns, pk, err := i.introspectColumns(ctx, r.name, r.ddl)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect columns for %s: %w", r.name, err)
		}
		table.Columns = columns
		table.PrimaryKey = pk

		indexes, err := i.introspectIndexes(ctx, r.name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect indexes for %s: %w", r.name, err)
		}
		table.Indexes = indexes

		fks, err := i.introspectForeignKeys(ctx, r.name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect foreign keys for %s: %w", r.name, err)
		}
		table.ForeignKeys = fks

		tables = append(tables, table)
	}

	return tables, nil
}

// introspectColumns reads the columns of a table and derives its primary key
func (i *SQLiteIntrospector) introspectColumns(ctx context.Context, tableName, ddl string) ([]Column, *PrimaryKey, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLite(tableName)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	pkPositions := map[int]string{}
	declared := map[string]string{}

	for rows.Next() {
		var cid, notNull, pkPos int
		var col Column
		var colType string
		var dflt sql.NullString

		if err := rows.Scan(&cid, &col.Name, &colType, &notNull, &dflt, &pkPos); err != nil {
			return nil, nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type = mapSQLiteType(colType)
		col.Nullable = notNull == 0 && pkPos == 0
		if dflt.Valid && dflt.String != "" {
			v := dflt.String
			col.DefaultValue = &v
		}
		if pkPos > 0 {
			pkPositions[pkPos] = col.Name
		}
		declared[col.Name] = strings.ToUpper(colType)

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(pkPositions) == 0 {
		return columns, nil, nil
	}

	positions := make([]int, 0, len(pkPositions))
	for p := range pkPositions {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	pk := &PrimaryKey{}
	for _, p := range positions {
		pk.Columns = append(pk.Columns, pkPositions[p])
	}

	// Only an INTEGER PRIMARY KEY declared AUTOINCREMENT counts; a bare
	// rowid alias would otherwise flip on every round trip.
	if len(pk.Columns) == 1 && declared[pk.Columns[0]] == "INTEGER" &&
		strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
		for c := range columns {
			if columns[c].Name == pk.Columns[0] {
				columns[c].AutoIncrement = true
			}
		}
	}

	return columns, pk, nil
}

// introspectIndexes reads the explicit and unique-constraint indexes of a table
func (i *SQLiteIntrospector) introspectIndexes(ctx context.Context, tableName string) ([]Index, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteSQLite(tableName)))
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}

	type indexRow struct {
		seq int
		idx Index
	}
	var found []indexRow
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		if origin == "pk" {
			continue
		}
		found = append(found, indexRow{seq: seq, idx: Index{Name: name, IsUnique: unique == 1}})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// index_list reports the newest index first
	sort.Slice(found, func(a, b int) bool { return found[a].seq > found[b].seq })

	indexes := make([]Index, 0, len(found))
	for _, r := range found {
		cols, err := i.indexColumns(ctx, r.idx.Name)
		if err != nil {
			return nil, err
		}
		r.idx.Columns = cols
		indexes = append(indexes, r.idx)
	}
	return indexes, nil
}

func (i *SQLiteIntrospector) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteSQLite(indexName)))
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", indexName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan index column: %w", err)
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// introspectForeignKeys reads all foreign keys for a table
func (i *SQLiteIntrospector) introspectForeignKeys(ctx context.Context, tableName string) ([]ForeignKey, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteSQLite(tableName)))
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	// One row per column; rows sharing an id form one constraint.
	byID := map[int]*ForeignKey{}
	var ids []int

	for rows.Next() {
		var id, seq int
		var table, from string
		var to sql.NullString
		var onUpdate, onDelete, match string

		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}

		fk, ok := byID[id]
		if !ok {
			fk = &ForeignKey{
				Name:            fmt.Sprintf("%s_fk_%d", tableName, id),
				ReferencedTable: table,
				OnUpdate:        ReferentialAction(onUpdate).Normalize(),
				OnDelete:        ReferentialAction(onDelete).Normalize(),
			}
			byID[id] = fk
			ids = append(ids, id)
		}
		fk.Columns = append(fk.Columns, from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// foreign_key_list numbers constraints from the last declared one
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	fks := make([]ForeignKey, 0, len(ids))
	for _, id := range ids {
		fks = append(fks, *byID[id])
	}
	return fks, nil
}

// introspectViews reads all views
func (i *SQLiteIntrospector) introspectViews(ctx context.Context) ([]View, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT name, COALESCE(sql, '') FROM sqlite_master WHERE type = 'view' ORDER BY rowid`)
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

// resolveImplicitReferences fills foreign key columns declared without an
// explicit target (REFERENCES t) with the referenced table's primary key.
func resolveImplicitReferences(schema *DatabaseSchema) {
	pks := make(map[string][]string, len(schema.Tables))
	for _, t := range schema.Tables {
		if t.PrimaryKey != nil {
			pks[t.Name] = t.PrimaryKey.Columns
		}
	}
	for ti := range schema.Tables {
		for fi := range schema.Tables[ti].ForeignKeys {
			fk := &schema.Tables[ti].ForeignKeys[fi]
			pk := pks[fk.ReferencedTable]
			for c := range fk.ReferencedColumns {
				if fk.ReferencedColumns[c] == "" && c < len(pk) {
					fk.ReferencedColumns[c] = pk[c]
				}
			}
		}
	}
}

// mapSQLiteType maps a declared SQLite type to its storage class name
func mapSQLiteType(sqliteType string) string {
	upperType := strings.ToUpper(sqliteType)

	switch {
	case strings.Contains(upperType, "INT"):
		return "INTEGER"
	case strings.Contains(upperType, "CHAR"), strings.Contains(upperType, "TEXT"), strings.Contains(upperType, "CLOB"):
		return "TEXT"
	case strings.Contains(upperType, "BLOB"), upperType == "":
		return "BLOB"
	case strings.Contains(upperType, "REAL"), strings.Contains(upperType, "FLOA"), strings.Contains(upperType, "DOUB"):
		return "REAL"
	default:
		return "NUMERIC"
	}
}

func quoteSQLite(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
