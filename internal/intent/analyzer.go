package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reactsql/internal/catalog"
)

// fallbackTableCount is K in spec.md §4.C step 3.
const fallbackTableCount = 5

// fallbackConfidence is the confidence assigned to a fallback plan.
const fallbackConfidence = 0.3

// Completer is the narrow slice of llmclient.Client the analyzer
// needs, kept as an interface so tests can supply a fake without a
// real model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Analyzer is the Intent Analyzer (spec.md §4.C).
type Analyzer struct {
	llm Completer
}

// New constructs an Analyzer over llm.
func New(llm Completer) *Analyzer {
	return &Analyzer{llm: llm}
}

// llmPlanResponse is the strict JSON shape requested in buildPrompt.
type llmPlanResponse struct {
	Understanding             string            `json:"understanding"`
	Confidence                float64           `json:"confidence"`
	RequiresCrossDatabaseJoin bool              `json:"requiresCrossDatabaseJoin"`
	Reasoning                 string            `json:"reasoning"`
	Databases                 []llmPlanDatabase `json:"databases"`
}

type llmPlanDatabase struct {
	DatabaseID     string   `json:"databaseId"`
	DatabaseName   string   `json:"databaseName"`
	RequiredTables []string `json:"requiredTables"`
	Purpose        string   `json:"purpose"`
	Priority       int      `json:"priority"`
}

// Analyze turns question plus snapshots into a validated IntentPlan
// per spec.md §4.C's five-step protocol.
func (a *Analyzer) Analyze(ctx context.Context, question string, snapshots []*catalog.SchemaSnapshot) (*IntentPlan, error) {
	prompt := buildPrompt(question, snapshots)

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("intent: llm call failed: %w", err)
	}

	plan, parseErr := parsePlanResponse(question, raw)
	if parseErr != nil {
		plan = fallbackPlan(question, snapshots)
	}

	validateAndClose(plan, snapshots)
	return plan, nil
}

// parsePlanResponse strips markdown fences (the teacher's
// UpdateRichContextTool idiom for LLM JSON output) and unmarshals the
// strict JSON response into an IntentPlan.
func parsePlanResponse(question, raw string) (*IntentPlan, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var resp llmPlanResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("intent: unparseable planning response: %w", err)
	}

	plan := &IntentPlan{
		OriginalQuestion:    question,
		Understanding:       resp.Understanding,
		Confidence:          resp.Confidence,
		Reasoning:           resp.Reasoning,
		RequiresCrossDbJoin: resp.RequiresCrossDatabaseJoin,
	}
	for _, db := range resp.Databases {
		plan.SubPlans = append(plan.SubPlans, DbSubPlan{
			DBID:           db.DatabaseID,
			DisplayName:    db.DatabaseName,
			RequiredTables: db.RequiredTables,
			Purpose:        db.Purpose,
			Priority:       db.Priority,
		})
	}
	return plan, nil
}

// fallbackPlan implements spec.md §4.C step 3: one sub-plan per
// snapshot, first K=5 tables, confidence 0.3.
func fallbackPlan(question string, snapshots []*catalog.SchemaSnapshot) *IntentPlan {
	plan := &IntentPlan{
		OriginalQuestion: question,
		Understanding:    "Fallback plan: unable to parse planning response",
		Confidence:       fallbackConfidence,
		Reasoning:        "LLM response was not valid JSON; routing to every known database",
	}
	for _, snapshot := range snapshots {
		tables := make([]string, 0, fallbackTableCount)
		for i, table := range snapshot.Tables {
			if i >= fallbackTableCount {
				break
			}
			tables = append(tables, table.QualifiedName)
		}
		plan.SubPlans = append(plan.SubPlans, DbSubPlan{
			DBID:           snapshot.DBID,
			DisplayName:    snapshot.DisplayName,
			RequiredTables: tables,
			Purpose:        "Retrieve relevant data",
			Priority:       1,
		})
	}
	return plan
}

// validateAndClose implements spec.md §4.C steps 4-5: drop unknown
// tables, close over foreign keys, then drop sub-plans whose dbId
// matches no snapshot.
func validateAndClose(plan *IntentPlan, snapshots []*catalog.SchemaSnapshot) {
	byID := make(map[string]*catalog.SchemaSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.DBID] = s
	}

	kept := plan.SubPlans[:0]
	for _, sub := range plan.SubPlans {
		snapshot, ok := byID[sub.DBID]
		if !ok {
			continue
		}

		var valid []string
		for _, name := range sub.RequiredTables {
			if table, ok := snapshot.TableByName(name); ok {
				valid = append(valid, table.QualifiedName)
			}
		}

		sub.RequiredTables = closeOverForeignKeys(snapshot, valid)
		kept = append(kept, sub)
	}
	plan.SubPlans = kept
}
