package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reactsql/internal/catalog"
	"reactsql/internal/executor"
	"reactsql/internal/intent"
)

// generatedSQLOrEmpty dereferences a DbSubPlan's nullable GeneratedSQL,
// returning "" when generation has not yet produced a query for it.
func generatedSQLOrEmpty(sub intent.DbSubPlan) string {
	if sub.GeneratedSQL == nil {
		return ""
	}
	return *sub.GeneratedSQL
}

// Run drives plan to completion, choosing parallel or priority mode per
// hasMappingDependency (spec.md §4.E), and returns the AggregateResult.
func Run(ctx context.Context, plan Plan) AggregateResult {
	requestedCap := plan.RequestedRowCap
	exec := func(ctx context.Context, target Target, sql string) DbResult {
		return defaultExecute(ctx, target, sql, requestedCap)
	}
	return run(ctx, plan, exec)
}

func run(ctx context.Context, plan Plan, exec executeFunc) AggregateResult {
	start := time.Now()
	var result AggregateResult
	if hasMappingDependency(plan) {
		result = runPriority(ctx, plan, exec)
	} else {
		result = runParallel(ctx, plan, exec)
	}
	result.ElapsedMillis = time.Since(start).Milliseconds()
	return result
}

// hasMappingDependency is true iff some mapping has both its sourceDb
// and targetDb present among the plan's targets, and the plan has ≥2
// sub-plans (spec.md §4.E).
func hasMappingDependency(plan Plan) bool {
	if len(plan.Targets) < 2 {
		return false
	}
	present := make(map[string]bool, len(plan.Targets))
	for _, t := range plan.Targets {
		present[t.SubPlan.DBID] = true
	}
	for _, m := range plan.Mappings {
		if present[m.SourceDB] && present[m.TargetDB] {
			return true
		}
	}
	return false
}

// runParallel launches every sub-plan concurrently via errgroup and
// joins on all of them; the aggregate succeeds iff every sub-plan does
// (spec.md §4.E, §5 "no cross-task shared mutable state").
func runParallel(ctx context.Context, plan Plan, exec executeFunc) AggregateResult {
	group, groupCtx := errgroup.WithContext(ctx)
	results := make([]DbResult, len(plan.Targets))

	for i, target := range plan.Targets {
		i, target := i, target
		group.Go(func() error {
			results[i] = exec(groupCtx, target, generatedSQLOrEmpty(target.SubPlan))
			return nil
		})
	}
	// Errors are reported per-DB in the aggregate, never propagated as
	// the group's own error, so every sub-plan is allowed to finish.
	_ = group.Wait()

	return collect(results)
}

// runPriority executes sub-plans strictly in ascending priority order,
// threading extracted mapping-column values from earlier databases into
// later ones (spec.md §4.E two-phase loop).
func runPriority(ctx context.Context, plan Plan, exec executeFunc) AggregateResult {
	targets := append([]Target(nil), plan.Targets...)
	sortByPriority(targets)

	extracted := map[mappingKey]map[string]bool{}
	results := make([]DbResult, 0, len(targets))

	for i, target := range targets {
		sql := generatedSQLOrEmpty(target.SubPlan)
		if i > 0 && len(extracted) > 0 {
			sql = injectMappingValues(plan.Mappings, target.SubPlan.DBID, sql, extracted)
		}

		result := exec(ctx, target, sql)
		results = append(results, result)
		if !result.OK {
			break
		}

		collectExtractedValues(plan.Mappings, target.SubPlan.DBID, result.Body, extracted)
	}

	return collect(results)
}

func sortByPriority(targets []Target) {
	for i := 1; i < len(targets); i++ {
		for j := i; j > 0 && targets[j].SubPlan.Priority < targets[j-1].SubPlan.Priority; j-- {
			targets[j], targets[j-1] = targets[j-1], targets[j]
		}
	}
}

type mappingKey struct {
	DB     string
	Column string
}

// injectMappingValues rewrites sql's "target-column IN (…)" pattern
// (tolerating several quoting styles) with the collected source values
// for every mapping whose targetDb matches dbID; empty values become
// "1=0"; a mapping with no matching IN-pattern is skipped.
func injectMappingValues(mappings []catalog.CrossMapping, dbID, sql string, extracted map[mappingKey]map[string]bool) string {
	for _, m := range mappings {
		if m.TargetDB != dbID {
			continue
		}
		values := extracted[mappingKey{DB: m.SourceDB, Column: m.SourceColumn}]
		pattern := inClausePattern(m.TargetColumn)
		loc := pattern.FindStringIndex(sql)
		if loc == nil {
			continue
		}
		matchGroups := pattern.FindStringSubmatch(sql)
		column := matchGroups[1]
		replacement := inClauseReplacement(column, values)
		sql = sql[:loc[0]] + replacement + sql[loc[1]:]
	}
	return sql
}

// inClausePattern matches `<column-possibly-quoted> IN ( ... )`,
// tolerating backtick, double-quote, bracket, or bare identifier
// quoting styles used across the four dialects.
func inClausePattern(column string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(column)
	pattern := `(?is)([` + "`" + `"\[]?` + quoted + `[` + "`" + `"\]]?)\s+IN\s*\([^)]*\)`
	return regexp.MustCompile(pattern)
}

func inClauseReplacement(column string, values map[string]bool) string {
	if len(values) == 0 {
		return "1=0"
	}
	sorted := make([]string, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	sortStrings(sorted)
	quoted := make([]string, len(sorted))
	for i, v := range sorted {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(quoted, ", "))
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// collectExtractedValues parses body's tab-delimited block (spec.md
// §4.E's extraction parsing rule) and, for every mapping whose sourceDb
// equals dbID, collects the named column's non-null, non-empty values.
func collectExtractedValues(mappings []catalog.CrossMapping, dbID, body string, extracted map[mappingKey]map[string]bool) {
	var sourceMappings []catalog.CrossMapping
	for _, m := range mappings {
		if m.SourceDB == dbID {
			sourceMappings = append(sourceMappings, m)
		}
	}
	if len(sourceMappings) == 0 {
		return
	}

	header, rows := parseTabDelimitedBody(body)
	if header == nil {
		return
	}
	columnIndex := make(map[string]int, len(header))
	for i, h := range header {
		columnIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, m := range sourceMappings {
		idx, ok := columnIndex[strings.ToLower(m.SourceColumn)]
		if !ok {
			continue
		}
		key := mappingKey{DB: dbID, Column: m.SourceColumn}
		set := extracted[key]
		if set == nil {
			set = map[string]bool{}
			extracted[key] = set
		}
		for _, row := range rows {
			if idx >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[idx])
			if v == "" || strings.EqualFold(v, "NULL") {
				continue
			}
			set[v] = true
		}
	}
}

// parseTabDelimitedBody finds the header row (the first line not
// starting with "===", "Query:", or "Rows") and the data rows that
// follow, up to a "Rows extracted:" trailer or another "===" marker
// (spec.md §4.E extraction parsing).
func parseTabDelimitedBody(body string) ([]string, [][]string) {
	lines := strings.Split(body, "\n")
	var header []string
	var rows [][]string
	for _, line := range lines {
		if header == nil {
			if line == "" || strings.HasPrefix(line, "===") || strings.HasPrefix(line, "Query:") || strings.HasPrefix(line, "Rows") {
				continue
			}
			header = strings.Split(line, "\t")
			continue
		}
		if strings.HasPrefix(line, "Rows extracted:") || strings.HasPrefix(line, "===") {
			break
		}
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return header, rows
}

func collect(results []DbResult) AggregateResult {
	agg := AggregateResult{OK: true, PerDB: make(map[string]DbResult, len(results))}
	for _, r := range results {
		if r.DBID == "" {
			continue
		}
		agg.PerDB[r.DBID] = r
		if !r.OK {
			agg.OK = false
			agg.Errors = append(agg.Errors, fmt.Sprintf("Database %s: %s", r.DBID, r.Error))
		}
	}
	return agg
}

// defaultExecute adapts internal/executor's Execute into the
// executeFunc seam used by the real (non-test) code path.
func defaultExecute(ctx context.Context, target Target, sql string, requestedCap int) DbResult {
	start := time.Now()
	res := executor.Execute(ctx, executor.Request{
		Descriptor:   target.Descriptor,
		Adapter:      target.Adapter,
		SQL:          sql,
		RequestedCap: requestedCap,
	})
	return DbResult{
		DBID:          target.SubPlan.DBID,
		DisplayName:   target.SubPlan.DisplayName,
		ExecutedSQL:   sql,
		RowsExtracted: countExtractedRows(res.Body),
		Body:          res.Body,
		OK:            res.OK,
		Error:         res.Error,
		ElapsedMillis: time.Since(start).Milliseconds(),
		Warnings:      res.Warnings,
	}
}

func countExtractedRows(body string) int {
	_, rows := parseTabDelimitedBody(body)
	return len(rows)
}
