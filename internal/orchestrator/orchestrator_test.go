package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"reactsql/internal/catalog"
	"reactsql/internal/intent"
)

func strPtr(s string) *string { return &s }

func subPlan(dbid string, priority int, sql string) intent.DbSubPlan {
	return intent.DbSubPlan{DBID: dbid, Priority: priority, GeneratedSQL: strPtr(sql)}
}

func TestHasMappingDependencyRequiresBothEndpointsAndTwoSubPlans(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("a", 1, "SELECT 1")},
			{SubPlan: subPlan("b", 2, "SELECT 1")},
		},
		Mappings: []catalog.CrossMapping{{SourceDB: "a", SourceColumn: "id", TargetDB: "b", TargetColumn: "a_id"}},
	}
	if !hasMappingDependency(plan) {
		t.Error("expected mapping dependency with both endpoints present")
	}

	plan.Targets = plan.Targets[:1]
	if hasMappingDependency(plan) {
		t.Error("expected no dependency with fewer than two sub-plans")
	}
}

func TestHasMappingDependencyFalseWhenEndpointMissing(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("a", 1, "SELECT 1")},
			{SubPlan: subPlan("b", 2, "SELECT 1")},
		},
		Mappings: []catalog.CrossMapping{{SourceDB: "a", SourceColumn: "id", TargetDB: "c", TargetColumn: "a_id"}},
	}
	if hasMappingDependency(plan) {
		t.Error("expected no dependency: mapping's target db is not in the plan")
	}
}

// TestPriorityModeOrdering is testable property 6: for priority_i <
// priority_j, result_i is available before exec(j) begins.
func TestPriorityModeOrdering(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("b", 2, "SELECT customer_id FROM orders WHERE customer_id IN (1)")},
			{SubPlan: subPlan("a", 1, "SELECT id FROM customers")},
		},
		Mappings: []catalog.CrossMapping{{SourceDB: "a", SourceColumn: "id", TargetDB: "b", TargetColumn: "customer_id"}},
	}

	var order []string
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		order = append(order, target.SubPlan.DBID)
		return DbResult{DBID: target.SubPlan.DBID, OK: true, Body: "id\n1\nRows extracted: 1\n"}
	}

	result := run(context.Background(), plan, exec)
	if !result.OK {
		t.Fatalf("expected aggregate ok, got errors %v", result.Errors)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected a before b by priority, got %v", order)
	}
}

// TestParallelModeSafety is testable property 7: the executor receives
// no state from another sub-plan, and scrambling launch order does not
// change per-DB results.
func TestParallelModeSafety(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("a", 1, "SELECT 1")},
			{SubPlan: subPlan("b", 1, "SELECT 2")},
			{SubPlan: subPlan("c", 1, "SELECT 3")},
		},
	}

	var mu sync.Mutex
	seenSQL := map[string]string{}
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		mu.Lock()
		seenSQL[target.SubPlan.DBID] = sql
		mu.Unlock()
		return DbResult{DBID: target.SubPlan.DBID, OK: true, Body: sql}
	}

	result := run(context.Background(), plan, exec)
	if !result.OK {
		t.Fatalf("expected aggregate ok, got errors %v", result.Errors)
	}
	for _, tc := range []struct{ dbid, want string }{
		{"a", "SELECT 1"}, {"b", "SELECT 2"}, {"c", "SELECT 3"},
	} {
		if seenSQL[tc.dbid] != tc.want {
			t.Errorf("db %s: expected own SQL %q, got %q (cross-task leakage)", tc.dbid, tc.want, seenSQL[tc.dbid])
		}
		if result.PerDB[tc.dbid].Body != tc.want {
			t.Errorf("db %s: result body mismatch, got %q", tc.dbid, result.PerDB[tc.dbid].Body)
		}
	}
}

// TestParallelModeAggregateFailsIfAnySubPlanFails covers the "aggregate
// is successful iff every sub-plan succeeds" rule of spec.md §4.E.
func TestParallelModeAggregateFailsIfAnySubPlanFails(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("a", 1, "SELECT 1")},
			{SubPlan: subPlan("b", 1, "SELECT 2")},
		},
	}
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		if target.SubPlan.DBID == "b" {
			return DbResult{DBID: "b", OK: false, Error: "boom"}
		}
		return DbResult{DBID: target.SubPlan.DBID, OK: true}
	}

	result := run(context.Background(), plan, exec)
	if result.OK {
		t.Fatal("expected aggregate to fail when one sub-plan fails")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "Database b: boom" {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

// TestPriorityModeInjectsSourceValues is scenario S4: mapping
// A.customers.id -> B.orders.customer_id; the orchestrator injects the
// collected source values into B's IN (...) pattern before executing.
func TestPriorityModeInjectsSourceValues(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("B", 2, "SELECT total FROM orders WHERE customer_id IN ('placeholder')")},
			{SubPlan: subPlan("A", 1, "SELECT id FROM customers")},
		},
		Mappings: []catalog.CrossMapping{{SourceDB: "A", SourceTable: "customers", SourceColumn: "id", TargetDB: "B", TargetTable: "orders", TargetColumn: "customer_id"}},
	}

	var capturedTargetSQL string
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		switch target.SubPlan.DBID {
		case "A":
			return DbResult{DBID: "A", OK: true, Body: "id\n1\n2\n3\nRows extracted: 3\n"}
		case "B":
			capturedTargetSQL = sql
			return DbResult{DBID: "B", OK: true, Body: "total\n100\nRows extracted: 1\n"}
		}
		return DbResult{DBID: target.SubPlan.DBID, OK: false, Error: "unexpected db"}
	}

	result := run(context.Background(), plan, exec)
	if !result.OK {
		t.Fatalf("expected aggregate ok, got errors %v", result.Errors)
	}
	if capturedTargetSQL == "" {
		t.Fatal("expected B's SQL to be captured")
	}
	for _, v := range []string{"'1'", "'2'", "'3'"} {
		if !strings.Contains(capturedTargetSQL, v) {
			t.Errorf("expected injected value %s in rewritten SQL, got %q", v, capturedTargetSQL)
		}
	}
}

// TestPriorityModeEmptySourceBecomesFalseClause is scenario S5: an
// empty source result rewrites the target's IN (...) to 1=0, and the
// aggregate is still ok=true.
func TestPriorityModeEmptySourceBecomesFalseClause(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("B", 2, "SELECT total FROM orders WHERE customer_id IN ('placeholder')")},
			{SubPlan: subPlan("A", 1, "SELECT id FROM customers WHERE 1=0")},
		},
		Mappings: []catalog.CrossMapping{{SourceDB: "A", SourceColumn: "id", TargetDB: "B", TargetColumn: "customer_id"}},
	}

	var capturedTargetSQL string
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		switch target.SubPlan.DBID {
		case "A":
			return DbResult{DBID: "A", OK: true, Body: "id\nRows extracted: 0\n"}
		case "B":
			capturedTargetSQL = sql
			return DbResult{DBID: "B", OK: true, Body: "total\nRows extracted: 0\n"}
		}
		return DbResult{DBID: target.SubPlan.DBID, OK: false, Error: "unexpected db"}
	}

	result := run(context.Background(), plan, exec)
	if !result.OK {
		t.Fatalf("expected aggregate ok, got errors %v", result.Errors)
	}
	if !strings.Contains(capturedTargetSQL, "1=0") {
		t.Errorf("expected empty-source injection to produce 1=0, got %q", capturedTargetSQL)
	}
}

func TestPriorityModeBreaksLoopOnFailure(t *testing.T) {
	plan := Plan{
		Targets: []Target{
			{SubPlan: subPlan("B", 2, "SELECT 1")},
			{SubPlan: subPlan("A", 1, "SELECT 1")},
		},
		Mappings: []catalog.CrossMapping{{SourceDB: "A", SourceColumn: "id", TargetDB: "B", TargetColumn: "customer_id"}},
	}

	var calls []string
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		calls = append(calls, target.SubPlan.DBID)
		if target.SubPlan.DBID == "A" {
			return DbResult{DBID: "A", OK: false, Error: "connection refused"}
		}
		return DbResult{DBID: "B", OK: true}
	}

	result := run(context.Background(), plan, exec)
	if result.OK {
		t.Fatal("expected aggregate to fail")
	}
	if len(calls) != 1 || calls[0] != "A" {
		t.Fatalf("expected the loop to break after A's failure without calling B, got %v", calls)
	}
}

