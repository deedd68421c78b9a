package sqlgen

import (
	"context"
	"fmt"
)

// Completer is the narrow slice of llmclient.Client the generator
// depends on, kept local so this package does not import llmclient.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of generating SQL for one sub-plan: exactly
// one of SQL or Err is set.
type Result struct {
	DBID string
	SQL  string
	Err  error
}

// Generate implements spec.md §4.D end to end: it builds one shared
// prompt for question across every request, extracts a candidate SQL
// statement per request, runs each through the repair cascade grounded
// in its own schema snapshot and dialect, and validates the outcome.
//
// A sub-plan whose candidate is empty after extraction, or whose
// post-cascade SQL fails validation, yields a *GenerationError in its
// Result rather than aborting the other sub-plans.
func Generate(ctx context.Context, llm Completer, question string, requests []GenerationRequest) []Result {
	results := make([]Result, len(requests))
	if len(requests) == 0 {
		return results
	}

	prompt := BuildPrompt(question, requests)
	response, err := llm.Complete(ctx, prompt)
	if err != nil {
		for i, req := range requests {
			results[i] = Result{DBID: req.SubPlan.DBID, Err: fmt.Errorf("sqlgen: generation request failed: %w", err)}
		}
		return results
	}

	candidates := ExtractSQLPerDatabase(response, len(requests))

	for i, req := range requests {
		results[i] = generateOne(req, candidates[i])
	}
	return results
}

func generateOne(req GenerationRequest, candidate string) Result {
	dbid := req.SubPlan.DBID
	if candidate == "" {
		return Result{DBID: dbid, Err: &GenerationError{DBID: dbid, Reason: "no SQL candidate extracted from model response"}}
	}

	stageCtx := StageContext{
		Snapshot: req.Snapshot,
		Adapter:  req.Adapter,
		Mappings: req.Mappings,
	}

	repaired := RunCascade(stageCtx, candidate)

	if err := Validate(stageCtx, repaired); err != nil {
		return Result{DBID: dbid, Err: &GenerationError{DBID: dbid, Reason: err.Error()}}
	}
	return Result{DBID: dbid, SQL: repaired}
}
