// Package orchestrator implements the Cross-Database Orchestrator
// (spec.md §4.E): it picks parallel or priority execution mode from the
// plan's mapping dependencies, then drives the Per-DB Executor
// (internal/executor) to produce one AggregateResult.
package orchestrator

import (
	"context"

	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
	"reactsql/internal/intent"
)

// DbResult is one sub-plan's execution outcome (spec.md §3).
type DbResult struct {
	DBID          string
	DisplayName   string
	ExecutedSQL   string
	RowsExtracted int
	Body          string
	OK            bool
	Error         string
	ElapsedMillis int64
	Warnings      []string
}

// AggregateResult is the outcome of one PlanAndExecute call (spec.md §3).
type AggregateResult struct {
	OK            bool
	PerDB         map[string]DbResult
	Errors        []string
	ElapsedMillis int64
}

// Target bundles one sub-plan with everything the orchestrator needs to
// execute it: its descriptor and dialect adapter, resolved by the
// caller (internal/planner) from the catalog.
type Target struct {
	SubPlan    intent.DbSubPlan
	Descriptor catalog.DatabaseDescriptor
	Adapter    dialect.Adapter
}

// Plan is the orchestrator's input: the routed sub-plans plus the
// cross-database mapping set declared across all target descriptors.
type Plan struct {
	Targets  []Target
	Mappings []catalog.CrossMapping
	// RequestedRowCap is the caller-requested cap threaded through to
	// every executor call; effectiveRowCap (spec.md §4.F) takes the min
	// against each descriptor's own configured cap.
	RequestedRowCap int
}

// executeFunc is the seam the Executor is invoked through, so tests can
// substitute a mock that records call order (testable property 6) or
// asserts isolation (testable property 7) without a real database.
type executeFunc func(ctx context.Context, target Target, injectedSQL string) DbResult
