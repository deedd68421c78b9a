package catalog

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"reactsql/internal/dialect"
)

func newTestDescriptor(t *testing.T) DatabaseDescriptor {
	t.Helper()
	return DatabaseDescriptor{
		ID:               "test_db",
		DisplayName:      "test",
		Dialect:          dialect.Sqlite,
		ConnectionString: ":memory:",
	}
}

func TestCatalogSnapshotIsCachedAcrossCalls(t *testing.T) {
	cat := NewCatalog(nil)
	desc := newTestDescriptor(t)

	first, err := cat.Snapshot(context.Background(), desc)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	second, err := cat.Snapshot(context.Background(), desc)
	if err != nil {
		t.Fatalf("Snapshot (cached): %v", err)
	}
	if first != second {
		t.Error("expected the second Snapshot call to return the identical cached pointer")
	}
}

func TestCatalogSnapshotInMemoryDBHasNoTables(t *testing.T) {
	cat := NewCatalog(nil)
	desc := newTestDescriptor(t)

	snapshot, err := cat.Snapshot(context.Background(), desc)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.Status != StatusCompleted {
		t.Errorf("expected StatusCompleted, got %v (%s)", snapshot.Status, snapshot.Error)
	}
	if len(snapshot.Tables) != 0 {
		t.Errorf("expected a fresh :memory: db to have no tables, got %d", len(snapshot.Tables))
	}
}

func TestApplyTableFilterIncludeExclude(t *testing.T) {
	all := []string{"main.orders", "main.customers", "main.secrets"}

	got := applyTableFilter(all, []string{"orders", "customers"}, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 tables after include filter, got %d: %v", len(got), got)
	}

	got = applyTableFilter(all, nil, []string{"secrets"})
	if len(got) != 2 {
		t.Fatalf("expected 2 tables after exclude filter, got %d: %v", len(got), got)
	}
	for _, name := range got {
		if name == "main.secrets" {
			t.Error("excluded table leaked through applyTableFilter")
		}
	}
}

func TestSchemaSnapshotTableByNameShortAndQualified(t *testing.T) {
	snapshot := &SchemaSnapshot{
		Tables: []TableSchema{{QualifiedName: "dbo.Orders"}},
	}
	if _, ok := snapshot.TableByName("dbo.Orders"); !ok {
		t.Error("expected qualified lookup to succeed")
	}
	if _, ok := snapshot.TableByName("orders"); !ok {
		t.Error("expected case-insensitive short-name lookup to succeed")
	}
	if _, ok := snapshot.TableByName("nonexistent"); ok {
		t.Error("expected lookup of a missing table to fail")
	}
}
