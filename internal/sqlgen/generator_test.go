package sqlgen

import (
	"context"
	"errors"
	"testing"

	"reactsql/internal/intent"
)

var errBoom = errors.New("boom")

type stubCompleter struct {
	response string
	err      error
}

func (s stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func TestGenerateProducesRepairedSQLPerSubPlan(t *testing.T) {
	snapshot := ordersPeopleSnapshot()
	req := GenerationRequest{
		SubPlan:  intent.DbSubPlan{DBID: "shop_db", RequiredTables: []string{"orders", "people"}},
		Adapter:  sqliteAdapterForTest(),
		Snapshot: snapshot,
	}
	response := "DATABASE 1: shop_db\nCONFIRMED\n```sql\n" +
		"SELECT o.name FROM orders o JOIN people p ON o.person_id = p.id\n```\n"

	results := Generate(context.Background(), stubCompleter{response: response}, "who placed each order?", []GenerationRequest{req})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("unexpected error: %v", results[0].Err)
	}
	if !containsWholeWordFold(results[0].SQL, "p.name") {
		t.Errorf("expected repaired SQL to reference p.name, got %q", results[0].SQL)
	}
}

func TestGenerateReportsErrorWhenCandidateMissing(t *testing.T) {
	snapshot := ordersPeopleSnapshot()
	req := GenerationRequest{
		SubPlan:  intent.DbSubPlan{DBID: "shop_db", RequiredTables: []string{"orders"}},
		Adapter:  sqliteAdapterForTest(),
		Snapshot: snapshot,
	}
	response := "I'm not sure how to answer that."

	results := Generate(context.Background(), stubCompleter{response: response}, "???", []GenerationRequest{req})

	if results[0].Err == nil {
		t.Fatal("expected a generation error when no SQL candidate is extracted")
	}
	if _, ok := results[0].Err.(*GenerationError); !ok {
		t.Errorf("expected *GenerationError, got %T", results[0].Err)
	}
}

func TestGenerateReportsErrorOnLLMFailure(t *testing.T) {
	snapshot := ordersPeopleSnapshot()
	req := GenerationRequest{
		SubPlan:  intent.DbSubPlan{DBID: "shop_db", RequiredTables: []string{"orders"}},
		Adapter:  sqliteAdapterForTest(),
		Snapshot: snapshot,
	}

	results := Generate(context.Background(), stubCompleter{err: errBoom}, "???", []GenerationRequest{req})

	if results[0].Err == nil {
		t.Fatal("expected an error when the completer fails")
	}
}
