package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// postgresIntrospector reads pg_class / information_schema, qualifying
// every table name as schema.table, per spec.md §4.B.
type postgresIntrospector struct{}

func (i *postgresIntrospector) ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_schema || '.' || table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func splitSchemaTable(qualifiedName string) (schema, table string) {
	if idx := strings.IndexByte(qualifiedName, '.'); idx >= 0 {
		return qualifiedName[:idx], qualifiedName[idx+1:]
	}
	return "public", qualifiedName
}

func (i *postgresIntrospector) DescribeTable(ctx context.Context, db *sql.DB, qualifiedName string) (TableSchema, error) {
	table := TableSchema{QualifiedName: qualifiedName}
	schema, name := splitSchemaTable(qualifiedName)

	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable, c.character_maximum_length,
		       COALESCE(pk.is_pk, false)
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = $1 AND tc.table_name = $2
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schema, name)
	if err != nil {
		return table, err
	}
	defer rows.Close()

	for rows.Next() {
		var cname, ctype, isNullable string
		var maxLen sql.NullInt64
		var isPK bool
		if err := rows.Scan(&cname, &ctype, &isNullable, &maxLen, &isPK); err != nil {
			return table, err
		}
		col := ColumnSchema{
			Name:         cname,
			DataType:     ctype,
			Nullable:     strings.EqualFold(isNullable, "YES"),
			IsPrimaryKey: isPK,
		}
		if maxLen.Valid {
			ml := int(maxLen.Int64)
			col.MaxLength = &ml
		}
		table.Columns = append(table.Columns, col)
		if isPK {
			table.PrimaryKeys = append(table.PrimaryKeys, cname)
		}
	}
	if err := rows.Err(); err != nil {
		return table, err
	}

	fkRows, err := db.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2`, schema, name)
	if err != nil {
		return table, err
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var fkName, local, refTable, refCol string
		if err := fkRows.Scan(&fkName, &local, &refTable, &refCol); err != nil {
			return table, err
		}
		table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
			Name:             fkName,
			LocalColumn:      local,
			ReferencedTable:  refTable,
			ReferencedColumn: refCol,
		})
		for ci := range table.Columns {
			if table.Columns[ci].Name == local {
				table.Columns[ci].IsForeignKey = true
			}
		}
	}
	return table, fkRows.Err()
}

func (i *postgresIntrospector) CountRows(ctx context.Context, db *sql.DB, qualifiedName string) (int64, error) {
	schema, name := splitSchemaTable(qualifiedName)
	var n int64
	err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q.%q`, schema, name)).Scan(&n)
	return n, err
}

func (i *postgresIntrospector) SampleRows(ctx context.Context, db *sql.DB, qualifiedName string, n int) ([]map[string]string, error) {
	schema, name := splitSchemaTable(qualifiedName)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %q.%q LIMIT %d`, schema, name, n))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRowsToStringMaps(rows, n)
}
