package docstore

import (
	"context"
	"testing"

	"reactsql/internal/catalog"
)

func TestInMemoryPutGet(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	s.Put(ctx, Document{Type: "Schema", DatabaseID: "db1", Text: "hello"})
	doc, ok := s.Get(ctx, "Schema", "db1")
	if !ok {
		t.Fatal("expected document to be found")
	}
	if doc.Text != "hello" {
		t.Errorf("got %q", doc.Text)
	}

	if _, ok := s.Get(ctx, "Schema", "missing"); ok {
		t.Error("expected missing db to not be found")
	}
}

func TestInMemoryListFiltersByType(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.Put(ctx, Document{Type: "Schema", DatabaseID: "db1"})
	s.Put(ctx, Document{Type: "Schema", DatabaseID: "db2"})
	s.Put(ctx, Document{Type: "Other", DatabaseID: "db1"})

	got := s.List(ctx, "Schema")
	if len(got) != 2 {
		t.Fatalf("expected 2 schema docs, got %d", len(got))
	}
}

func TestSchemaSinkIndexesSnapshot(t *testing.T) {
	store := NewInMemory()
	sink := SchemaSink{Store: store}
	snapshot := &catalog.SchemaSnapshot{
		DBID:        "db1",
		DisplayName: "orders_db",
		Tables:      []catalog.TableSchema{{QualifiedName: "main.orders"}},
	}

	sink.IndexSchemaSnapshot(context.Background(), snapshot)

	doc, ok := store.Get(context.Background(), "Schema", "db1")
	if !ok {
		t.Fatal("expected snapshot to be indexed")
	}
	if doc.Text == "" {
		t.Error("expected a non-empty rendered document")
	}
}

func TestSchemaSinkNilStoreDoesNotPanic(t *testing.T) {
	sink := SchemaSink{}
	sink.IndexSchemaSnapshot(context.Background(), &catalog.SchemaSnapshot{DBID: "db1"})
}
