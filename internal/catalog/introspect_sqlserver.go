package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqlServerIntrospector reads INFORMATION_SCHEMA joined with
// sys.foreign_keys, qualifying every table as schema.table, per
// spec.md §4.B.
type sqlServerIntrospector struct{}

func (i *sqlServerIntrospector) ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA + '.' + TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'`)
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

func (i *sqlServerIntrospector) DescribeTable(ctx context.Context, db *sql.DB, qualifiedName string) (TableSchema, error) {
	table := TableSchema{QualifiedName: qualifiedName}
	schema, name := splitSchemaTable(qualifiedName)

	rows, err := db.QueryContext(ctx, `
		SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE, c.CHARACTER_MAXIMUM_LENGTH,
		       CASE WHEN pk.COLUMN_NAME IS NULL THEN 0 ELSE 1 END
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.COLUMN_NAME, kcu.TABLE_SCHEMA, kcu.TABLE_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON pk.COLUMN_NAME = c.COLUMN_NAME
		     AND pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = ? AND c.TABLE_NAME = ?
		ORDER BY c.ORDINAL_POSITION`, schema, name)
	if err != nil {
		return table, err
	}
	defer rows.Close()

	for rows.Next() {
		var cname, ctype, isNullable string
		var maxLen sql.NullInt64
		var isPK int
		if err := rows.Scan(&cname, &ctype, &isNullable, &maxLen, &isPK); err != nil {
			return table, err
		}
		col := ColumnSchema{
			Name:         cname,
			DataType:     ctype,
			Nullable:     strings.EqualFold(isNullable, "YES"),
			IsPrimaryKey: isPK == 1,
		}
		if maxLen.Valid {
			ml := int(maxLen.Int64)
			col.MaxLength = &ml
		}
		table.Columns = append(table.Columns, col)
		if col.IsPrimaryKey {
			table.PrimaryKeys = append(table.PrimaryKeys, cname)
		}
	}
	if err := rows.Err(); err != nil {
		return table, err
	}

	fkRows, err := db.QueryContext(ctx, `
		SELECT fk.name, pc.name, rt.name, rc.name
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		JOIN sys.tables t ON t.object_id = fk.parent_object_id
		JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = ? AND t.name = ?`, schema, name)
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

func (i *sqlServerIntrospector) CountRows(ctx context.Context, db *sql.DB, qualifiedName string) (int64, error) {
	schema, name := splitSchemaTable(qualifiedName)
	var n int64
	err := db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM [%s].[%s]`, schema, name)).Scan(&n)
	return n, err
}

func (i *sqlServerIntrospector) SampleRows(ctx context.Context, db *sql.DB, qualifiedName string, n int) ([]map[string]string, error) {
	schema, name := splitSchemaTable(qualifiedName)
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT TOP (%d) * FROM [%s].[%s]`, n, schema, name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRowsToStringMaps(rows, n)
}
