package catalog

import (
	"context"
	"database/sql"
)

// Introspector enumerates tables, columns, primary keys, and foreign
// keys for one dialect using that engine's system catalogs (spec.md
// §4.B). Implementations must not apply include/exclude filtering —
// that is the Catalog's job (filter.go) so it stays dialect-agnostic.
type Introspector interface {
	// ListTables returns the qualified names of every table in the
	// database (schema.table where the engine has schemas).
	ListTables(ctx context.Context, db *sql.DB) ([]string, error)

	// DescribeTable returns the full TableSchema for one qualified
	// table name, excluding ApproxRowCount and SampleRows (populated
	// separately by CountRows and SampleRows, whose errors the Catalog
	// ignores so that a failed count or sample does not fail the
	// snapshot).
	DescribeTable(ctx context.Context, db *sql.DB, qualifiedName string) (TableSchema, error)

	// CountRows runs a dialect-quoted SELECT COUNT(*) against the table.
	CountRows(ctx context.Context, db *sql.DB, qualifiedName string) (int64, error)

	// SampleRows fetches up to n sample rows for onboarding context.
	SampleRows(ctx context.Context, db *sql.DB, qualifiedName string, n int) ([]map[string]string, error)
}

// NewIntrospector returns the Introspector for a dialect name.
func NewIntrospector(name string) Introspector {
	switch name {
	case "Sqlite":
		return &sqliteIntrospector{}
	case "MySql":
		return &mysqlIntrospector{}
	case "Postgres":
		return &postgresIntrospector{}
	case "SqlServer":
		return &sqlServerIntrospector{}
	default:
		return nil
	}
}

// scanRowsToStringMaps converts *sql.Rows into the generic
// map[string]string sample-row shape, converting every value with
// fmt.Sprintf-style stringification (NULL becomes the Go nil->""; the
// executor, not the catalog, is responsible for the "NULL" literal used
// in result bodies).
func scanRowsToStringMaps(rows *sql.Rows, limit int) ([]map[string]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]string
	for rows.Next() && len(out) < limit {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]string, len(cols))
		for i, c := range cols {
			row[c] = stringifyValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func stringifyValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return toString(t)
	}
}
