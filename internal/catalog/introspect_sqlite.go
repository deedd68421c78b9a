package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteIntrospector reads sqlite_master plus PRAGMA table_info /
// foreign_key_list, per spec.md §4.B.
type sqliteIntrospector struct{}

func (i *sqliteIntrospector) ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
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

func (i *sqliteIntrospector) DescribeTable(ctx context.Context, db *sql.DB, qualifiedName string) (TableSchema, error) {
	table := TableSchema{QualifiedName: qualifiedName}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteSqliteIdent(qualifiedName)))
	if err != nil {
		return table, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return table, err
		}
		col := ColumnSchema{
			Name:         name,
			DataType:     ctype,
			Nullable:     notnull == 0,
			IsPrimaryKey: pk > 0,
		}
		table.Columns = append(table.Columns, col)
		if pk > 0 {
			table.PrimaryKeys = append(table.PrimaryKeys, name)
		}
	}
	if err := rows.Err(); err != nil {
		return table, err
	}

	fkRows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteSqliteIdent(qualifiedName)))
	if err != nil {
		return table, err
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var id, seq int
		var refTable, from, to string
		var onUpdate, onDelete, match string
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return table, err
		}
		fk := ForeignKey{
			Name:             fmt.Sprintf("fk_%s_%d", qualifiedName, id),
			LocalColumn:      from,
			ReferencedTable:  refTable,
			ReferencedColumn: to,
		}
		table.ForeignKeys = append(table.ForeignKeys, fk)
		for ci := range table.Columns {
			if table.Columns[ci].Name == from {
				table.Columns[ci].IsForeignKey = true
			}
		}
	}
	return table, fkRows.Err()
}

func (i *sqliteIntrospector) CountRows(ctx context.Context, db *sql.DB, qualifiedName string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteSqliteIdent(qualifiedName))).Scan(&n)
	return n, err
}

func (i *sqliteIntrospector) SampleRows(ctx context.Context, db *sql.DB, qualifiedName string, n int) ([]map[string]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT %d`, quoteSqliteIdent(qualifiedName), n))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRowsToStringMaps(rows, n)
}

func quoteSqliteIdent(name string) string {
	return `"` + name + `"`
}
