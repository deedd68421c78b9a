package intent

import (
	"context"
	"testing"

	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func ordersCustomersSnapshot() *catalog.SchemaSnapshot {
	return &catalog.SchemaSnapshot{
		DBID:        "shop_db",
		DisplayName: "shop",
		Dialect:     dialect.MySql,
		Status:      catalog.StatusCompleted,
		Tables: []catalog.TableSchema{
			{
				QualifiedName: "customers",
				Columns:       []catalog.ColumnSchema{{Name: "id", IsPrimaryKey: true}, {Name: "name"}},
			},
			{
				QualifiedName: "orders",
				Columns:       []catalog.ColumnSchema{{Name: "id", IsPrimaryKey: true}, {Name: "customer_id", IsForeignKey: true}, {Name: "total"}},
				ForeignKeys:   []catalog.ForeignKey{{Name: "fk_orders_customer", LocalColumn: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}},
			},
			{
				QualifiedName: "unrelated_logs",
				Columns:       []catalog.ColumnSchema{{Name: "id", IsPrimaryKey: true}},
			},
		},
	}
}

func TestAnalyzeParsesValidJSONResponse(t *testing.T) {
	response := `{"understanding":"top orders","confidence":0.9,"requiresCrossDatabaseJoin":false,` +
		`"reasoning":"single db","databases":[{"databaseId":"shop_db","databaseName":"shop",` +
		`"requiredTables":["orders"],"purpose":"find top orders","priority":1}]}`

	a := New(fakeCompleter{response: response})
	plan, err := a.Analyze(context.Background(), "top 3 order totals", []*catalog.SchemaSnapshot{ordersCustomersSnapshot()})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.SubPlans) != 1 {
		t.Fatalf("expected 1 sub-plan, got %d", len(plan.SubPlans))
	}
	sub := plan.SubPlans[0]
	if sub.DBID != "shop_db" {
		t.Errorf("got dbId %q", sub.DBID)
	}
	// FK closure must have pulled in "customers" even though only
	// "orders" was named by the LLM.
	foundCustomers := false
	for _, table := range sub.RequiredTables {
		if table == "customers" {
			foundCustomers = true
		}
	}
	if !foundCustomers {
		t.Errorf("expected foreign-key closure to add customers, got %v", sub.RequiredTables)
	}
}

func TestAnalyzeFallsBackOnUnparseableResponse(t *testing.T) {
	a := New(fakeCompleter{response: "not json at all"})
	plan, err := a.Analyze(context.Background(), "anything", []*catalog.SchemaSnapshot{ordersCustomersSnapshot()})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.Confidence != fallbackConfidence {
		t.Errorf("expected fallback confidence %v, got %v", fallbackConfidence, plan.Confidence)
	}
	if len(plan.SubPlans) != 1 {
		t.Fatalf("expected one fallback sub-plan per snapshot, got %d", len(plan.SubPlans))
	}
}

func TestAnalyzeDropsSubPlansForUnknownDatabase(t *testing.T) {
	response := `{"understanding":"x","confidence":0.5,"requiresCrossDatabaseJoin":false,"reasoning":"x",` +
		`"databases":[{"databaseId":"does_not_exist","databaseName":"ghost","requiredTables":["orders"],"purpose":"x","priority":1}]}`

	a := New(fakeCompleter{response: response})
	plan, err := a.Analyze(context.Background(), "q", []*catalog.SchemaSnapshot{ordersCustomersSnapshot()})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.SubPlans) != 0 {
		t.Errorf("expected sub-plan with unknown dbId to be dropped, got %v", plan.SubPlans)
	}
}

func TestAnalyzeDropsInvalidTableNames(t *testing.T) {
	response := `{"understanding":"x","confidence":0.5,"requiresCrossDatabaseJoin":false,"reasoning":"x",` +
		`"databases":[{"databaseId":"shop_db","databaseName":"shop","requiredTables":["orders","nonexistent_table"],"purpose":"x","priority":1}]}`

	a := New(fakeCompleter{response: response})
	plan, err := a.Analyze(context.Background(), "q", []*catalog.SchemaSnapshot{ordersCustomersSnapshot()})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, table := range plan.SubPlans[0].RequiredTables {
		if table == "nonexistent_table" {
			t.Error("expected invalid table name to be discarded before closure")
		}
	}
}

func TestCloseOverForeignKeysDoesNotPullUnrelatedTables(t *testing.T) {
	snapshot := ordersCustomersSnapshot()
	closed := closeOverForeignKeys(snapshot, []string{"orders"})
	for _, table := range closed {
		if table == "unrelated_logs" {
			t.Error("FK closure must not add a table with no foreign-key path")
		}
	}
}
