// Package sqlgen implements the SQL Generator & Repair Engine (spec.md
// §4.D): it assembles the generation prompt, extracts one SQL
// statement per sub-plan from the model's response, and repairs each
// statement through an ordered cascade of schema-grounded rewrites
// before a final validator accepts or rejects it.
package sqlgen

import (
	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
	"reactsql/internal/intent"
)

// MappingRequirement names a column a sub-plan's SQL must select (and
// group by, if aggregating) because it participates in a cross-database
// mapping used elsewhere in the plan (spec.md §4.D.1, §4.E).
type MappingRequirement struct {
	Table  string
	Column string
	// SourceColumn is the corresponding column name on the mapping's
	// source side, used by stage 8 (substitute source->target column)
	// to detect a model that echoed the wrong side's column name.
	SourceColumn string
}

// GenerationRequest bundles everything one sub-plan's generation pass
// needs: its own sub-plan, the dialect adapter for its database, the
// schema snapshot to ground rewrites against, and any mapping columns
// it must surface.
type GenerationRequest struct {
	SubPlan       intent.DbSubPlan
	Adapter       dialect.Adapter
	Snapshot      *catalog.SchemaSnapshot
	Mappings      []MappingRequirement
}

// GenerationError reports that the repair cascade could not produce
// valid SQL for a sub-plan (spec.md §7 GenerationError).
type GenerationError struct {
	DBID   string
	Reason string
}

func (e *GenerationError) Error() string {
	return "sqlgen: generation failed for " + e.DBID + ": " + e.Reason
}

// StageContext is the read-only schema and dialect context every
// repair-cascade stage receives (spec.md §9: "a list of (name,
// transform: SQL→SQL) pairs").
type StageContext struct {
	Snapshot *catalog.SchemaSnapshot
	Adapter  dialect.Adapter
	Mappings []MappingRequirement
}

// Stage is one named, pure, idempotent rewrite in the repair cascade.
type Stage struct {
	Name      string
	Transform func(ctx StageContext, sql string) string
}
