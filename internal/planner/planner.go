// Package planner wires the Schema Catalog, Intent Analyzer, SQL
// Generator, and Cross-Database Orchestrator into the single
// entrypoint spec.md §6 exposes: PlanAndExecute(question, ctx) →
// AggregateResult.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
	"reactsql/internal/dlog"
	"reactsql/internal/docstore"
	"reactsql/internal/intent"
	"reactsql/internal/llmclient"
	"reactsql/internal/orchestrator"
	"reactsql/internal/sqlgen"
)

// Completer is the LLM Service collaborator spec.md §6 describes:
// generate(userPrompt, ctx) → string. Both intent.Analyzer and
// sqlgen.Generate declare this same two-return-value shape locally;
// Planner depends on the interface rather than llmclient.Client so it
// can be exercised with a fake in tests.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// completerAdapter narrows llmclient.Client's three-return-value
// Complete down to Completer's two-return-value shape, for production
// wiring via NewWithClient.
type completerAdapter struct {
	client *llmclient.Client
}

func (a completerAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	return a.client.CompleteText(ctx, prompt)
}

// Planner is the top-level collaborator graph: one per process, built
// once at startup and reused across requests (spec.md §9 "construction
// graph is built once and treated as a value").
type Planner struct {
	catalog     *catalog.Catalog
	analyzer    *intent.Analyzer
	llm         Completer
	descriptors []catalog.DatabaseDescriptor
	adapters    map[string]dialect.Adapter
	log         *dlog.Logger
}

// NewWithClient builds a Planner backed by a real llmclient.Client.
func NewWithClient(llm *llmclient.Client, descriptors []catalog.DatabaseDescriptor, docs docstore.Store, log *dlog.Logger) (*Planner, error) {
	return New(completerAdapter{client: llm}, descriptors, docs, log)
}

// New builds a Planner over descriptors, resolving one dialect.Adapter
// per database up front. docs and log may be nil; sensible no-op
// defaults are substituted.
func New(llm Completer, descriptors []catalog.DatabaseDescriptor, docs docstore.Store, log *dlog.Logger) (*Planner, error) {
	if log == nil {
		log = dlog.New()
	}

	adapters := make(map[string]dialect.Adapter, len(descriptors))
	for _, d := range descriptors {
		adapter, err := dialect.New(d.Dialect)
		if err != nil {
			return nil, fmt.Errorf("planner: database %q: %w", d.ID, err)
		}
		adapters[d.ID] = adapter
	}

	return &Planner{
		catalog:     catalog.NewCatalog(docSink{store: docs}),
		analyzer:    intent.New(llm),
		llm:         llm,
		descriptors: descriptors,
		adapters:    adapters,
		log:         log,
	}, nil
}

// docSink adapts a docstore.Store into catalog.DocumentSink, storing a
// short schema chunk per database (spec.md §6 document repository:
// "persist and retrieve schema chunks keyed by
// {documentType:Schema, databaseId:<id>}").
type docSink struct {
	store docstore.Store
}

func (d docSink) IndexSchemaSnapshot(ctx context.Context, snapshot *catalog.SchemaSnapshot) {
	if d.store == nil {
		return
	}
	d.store.Put(ctx, docstore.Document{
		Type:       "Schema",
		DatabaseID: snapshot.DBID,
		Text:       schemaChunk(snapshot),
	})
}

// schemaChunk renders a short human-readable description of snapshot
// for onboarding into the document repository.
func schemaChunk(snapshot *catalog.SchemaSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database %s (%s): %d table(s)\n", snapshot.DBID, snapshot.Dialect, len(snapshot.Tables))
	for _, t := range snapshot.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name
		}
		fmt.Fprintf(&b, "- %s(%s)\n", t.QualifiedName, strings.Join(cols, ", "))
	}
	return b.String()
}

// AnalyseSchema introspects (or returns the cached introspection of)
// one database, per spec.md §6's AnalyseSchema(descriptor, ctx) →
// SchemaSnapshot (idempotent).
func (p *Planner) AnalyseSchema(ctx context.Context, desc catalog.DatabaseDescriptor) (*catalog.SchemaSnapshot, error) {
	return p.catalog.Snapshot(ctx, desc)
}

// PlanAndExecute runs the full pipeline for one question: introspect
// every configured database, route the question to the relevant ones,
// generate and repair SQL per sub-plan, then execute (parallel or
// priority mode) and return the aggregate (spec.md §6).
func (p *Planner) PlanAndExecute(ctx context.Context, question string) (*orchestrator.AggregateResult, error) {
	requestID := uuid.New().String()
	start := time.Now()
	p.log.Printf("[%s] PlanAndExecute question=%q", requestID, question)

	snapshots := make([]*catalog.SchemaSnapshot, 0, len(p.descriptors))
	snapshotByID := make(map[string]*catalog.SchemaSnapshot, len(p.descriptors))
	for _, desc := range p.descriptors {
		snapshot, err := p.catalog.Snapshot(ctx, desc)
		if err != nil {
			p.log.Printf("[%s] schema analysis failed for %s: %v", requestID, desc.ID, err)
			continue
		}
		snapshots = append(snapshots, snapshot)
		snapshotByID[desc.ID] = snapshot
	}

	plan, err := p.analyzer.Analyze(ctx, question, snapshots)
	if err != nil {
		return nil, fmt.Errorf("planner: intent analysis: %w", err)
	}
	p.log.Printf("[%s] intent plan: %d sub-plan(s), requiresCrossDbJoin=%v", requestID, len(plan.SubPlans), plan.RequiresCrossDbJoin)

	descByID := make(map[string]catalog.DatabaseDescriptor, len(p.descriptors))
	for _, d := range p.descriptors {
		descByID[d.ID] = d
	}

	requests := make([]sqlgen.GenerationRequest, 0, len(plan.SubPlans))
	for _, sub := range plan.SubPlans {
		if _, ok := descByID[sub.DBID]; !ok {
			continue
		}
		requests = append(requests, sqlgen.GenerationRequest{
			SubPlan:  sub,
			Adapter:  p.adapters[sub.DBID],
			Snapshot: snapshotByID[sub.DBID],
			Mappings: mappingRequirementsFor(sub.DBID, allMappings(p.descriptors)),
		})
	}

	genResults := sqlgen.Generate(ctx, p.llm, question, requests)
	genByDB := make(map[string]sqlgen.Result, len(genResults))
	for _, r := range genResults {
		genByDB[r.DBID] = r
	}

	var targets []orchestrator.Target
	failed := map[string]string{}
	for _, sub := range plan.SubPlans {
		desc, ok := descByID[sub.DBID]
		if !ok {
			failed[sub.DBID] = fmt.Sprintf("no configured database %q", sub.DBID)
			continue
		}
		result, ok := genByDB[sub.DBID]
		if !ok || result.Err != nil {
			reason := "no generation attempted"
			if result.Err != nil {
				reason = result.Err.Error()
			}
			p.log.Printf("[%s] generation failed for %s: %s", requestID, sub.DBID, reason)
			failed[sub.DBID] = reason
			continue
		}
		sql := result.SQL
		sub.GeneratedSQL = &sql
		targets = append(targets, orchestrator.Target{
			SubPlan:    sub,
			Descriptor: desc,
			Adapter:    p.adapters[sub.DBID],
		})
	}

	aggregate := orchestrator.Run(ctx, orchestrator.Plan{
		Targets:  targets,
		Mappings: allMappings(p.descriptors),
	})
	mergeGenerationFailures(&aggregate, failed)

	aggregate.ElapsedMillis = time.Since(start).Milliseconds()
	p.log.Printf("[%s] aggregate ok=%v elapsedMillis=%d", requestID, aggregate.OK, aggregate.ElapsedMillis)
	return &aggregate, nil
}

// PlanAndExecuteWithTimeout derives a child context bounded by timeout
// before delegating to PlanAndExecute — spec.md §5 distinguishes a
// per-query timeout (descriptor-scoped) from an overall plan-wide one;
// this is the plan-wide half of that distinction.
func (p *Planner) PlanAndExecuteWithTimeout(ctx context.Context, question string, timeout time.Duration) (*orchestrator.AggregateResult, error) {
	childCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.PlanAndExecute(childCtx, question)
}

func mergeGenerationFailures(aggregate *orchestrator.AggregateResult, failed map[string]string) {
	if len(failed) == 0 {
		return
	}
	if aggregate.PerDB == nil {
		aggregate.PerDB = make(map[string]orchestrator.DbResult, len(failed))
	}
	for dbid, reason := range failed {
		aggregate.OK = false
		aggregate.PerDB[dbid] = orchestrator.DbResult{DBID: dbid, OK: false, Error: reason}
		aggregate.Errors = append(aggregate.Errors, fmt.Sprintf("Database %s: %s", dbid, reason))
	}
}

func allMappings(descriptors []catalog.DatabaseDescriptor) []catalog.CrossMapping {
	var all []catalog.CrossMapping
	for _, d := range descriptors {
		all = append(all, d.CrossMappings...)
	}
	return all
}

// mappingRequirementsFor builds the SQL Generator's MappingRequirement
// list for dbID: every mapping where dbID is the source or the target
// side requires its own endpoint column to appear in the final SQL
// (spec.md §4.D.1, §8 testable property 4), with the opposite side's
// column name recorded so stage 8 can correct a model that echoed the
// wrong side's name.
func mappingRequirementsFor(dbID string, mappings []catalog.CrossMapping) []sqlgen.MappingRequirement {
	var reqs []sqlgen.MappingRequirement
	for _, m := range mappings {
		switch dbID {
		case m.SourceDB:
			reqs = append(reqs, sqlgen.MappingRequirement{Table: m.SourceTable, Column: m.SourceColumn, SourceColumn: m.TargetColumn})
		case m.TargetDB:
			reqs = append(reqs, sqlgen.MappingRequirement{Table: m.TargetTable, Column: m.TargetColumn, SourceColumn: m.SourceColumn})
		}
	}
	return reqs
}
