package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// mysqlIntrospector reads INFORMATION_SCHEMA scoped to DATABASE(), per
// spec.md §4.B.
type mysqlIntrospector struct{}

func (i *mysqlIntrospector) ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'`)
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

func (i *mysqlIntrospector) DescribeTable(ctx context.Context, db *sql.DB, qualifiedName string) (TableSchema, error) {
	table := TableSchema{QualifiedName: qualifiedName}

	rows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_key, character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, qualifiedName)
	if err != nil {
		return table, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, ctype, isNullable, key string
		var maxLen sql.NullInt64
		if err := rows.Scan(&name, &ctype, &isNullable, &key, &maxLen); err != nil {
			return table, err
		}
		col := ColumnSchema{
			Name:         name,
			DataType:     ctype,
			Nullable:     strings.EqualFold(isNullable, "YES"),
			IsPrimaryKey: key == "PRI",
		}
		if maxLen.Valid {
			n := int(maxLen.Int64)
			col.MaxLength = &n
		}
		table.Columns = append(table.Columns, col)
		if col.IsPrimaryKey {
			table.PrimaryKeys = append(table.PrimaryKeys, name)
		}
	}
	if err := rows.Err(); err != nil {
		return table, err
	}

	fkRows, err := db.QueryContext(ctx, `
		SELECT constraint_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND referenced_table_name IS NOT NULL`,
		qualifiedName)
	if err != nil {
		return table, err
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var name, local, refTable, refCol string
		if err := fkRows.Scan(&name, &local, &refTable, &refCol); err != nil {
			return table, err
		}
		table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
			Name:             name,
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

func (i *mysqlIntrospector) CountRows(ctx context.Context, db *sql.DB, qualifiedName string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM `%s`", qualifiedName)).Scan(&n)
	return n, err
}

func (i *mysqlIntrospector) SampleRows(ctx context.Context, db *sql.DB, qualifiedName string, n int) ([]map[string]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM `%s` LIMIT %d", qualifiedName, n))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRowsToStringMaps(rows, n)
}
