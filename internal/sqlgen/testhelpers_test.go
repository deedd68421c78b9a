package sqlgen

import (
	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
)

// ordersPeopleSnapshot is the shared fixture used across sqlgen tests:
// two tables joined by one foreign key, with orders lacking the "name"
// column that only people owns (spec.md §8 scenario S6).
func ordersPeopleSnapshot() *catalog.SchemaSnapshot {
	return &catalog.SchemaSnapshot{
		DBID:        "shop_db",
		DisplayName: "shop",
		Dialect:     dialect.Sqlite,
		Status:      catalog.StatusCompleted,
		Tables: []catalog.TableSchema{
			{
				QualifiedName: "orders",
				Columns: []catalog.ColumnSchema{
					{Name: "id", DataType: "INTEGER", IsPrimaryKey: true},
					{Name: "person_id", DataType: "INTEGER", IsForeignKey: true},
					{Name: "amount", DataType: "REAL"},
				},
				PrimaryKeys: []string{"id"},
				ForeignKeys: []catalog.ForeignKey{
					{Name: "fk_orders_person", LocalColumn: "person_id", ReferencedTable: "people", ReferencedColumn: "id"},
				},
			},
			{
				QualifiedName: "people",
				Columns: []catalog.ColumnSchema{
					{Name: "id", DataType: "INTEGER", IsPrimaryKey: true},
					{Name: "name", DataType: "TEXT"},
					{Name: "city", DataType: "TEXT"},
				},
				PrimaryKeys: []string{"id"},
			},
		},
	}
}

func sqliteAdapterForTest() dialect.Adapter {
	return dialect.MustNew(dialect.Sqlite)
}
