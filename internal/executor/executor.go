// Package executor implements the Per-DB Executor (spec.md §4.F): it
// runs one sub-plan's generated SQL to completion against its target
// database, enforcing the row cap, masking sensitive columns, and
// rendering the stable tab-delimited result body.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
)

// State is one point in the sub-plan execution state machine of
// spec.md §4.F.
type State string

const (
	StatePlanned   State = "Planned"
	StateGenerated State = "Generated"
	StateInjected  State = "Injected"
	StateExecuting State = "Executing"
	StateDone      State = "Done"
	StateFailed    State = "Failed"
)

const defaultQueryTimeout = 30 * time.Second

// Request is everything the executor needs to run one sub-plan.
type Request struct {
	Descriptor   catalog.DatabaseDescriptor
	Adapter      dialect.Adapter
	SQL          string
	RequestedCap int
}

// Result is one sub-plan's execution outcome (spec.md §4.F / §7).
type Result struct {
	DBID  string
	OK    bool
	Body  string
	Error string
	State State
	// Warnings carries non-fatal result-quality hints ("0 rows
	// extracted", duplicate rows) that do not affect OK, generalized
	// from the teacher's VerifySQLTool diagnostics (SPEC_FULL §4).
	Warnings []string
}

// Execute runs one sub-plan to completion: it opens a connection,
// applies the effective row cap, streams rows into the tab-delimited
// body format, and masks sensitive columns.
//
// SqlServer error 4060 ("Cannot open database") is downgraded to a
// successful empty result per spec.md §4.F / §7.
func Execute(ctx context.Context, req Request) Result {
	dbid := req.Descriptor.ID

	// The forbidden-keyword/injection-fragment gate runs before a connection is
	// ever opened (spec.md §8 scenario S2: "no connection opened").
	if ok, msg := req.Adapter.SyntaxCheck(req.SQL); !ok {
		return Result{DBID: dbid, OK: false, Error: msg, State: StateFailed}
	}

	timeout := req.Descriptor.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := req.Adapter.Open(queryCtx, req.Descriptor.ConnectionString)
	if err != nil {
		if dialect.IsDatabaseDoesNotExistError(err) {
			return Result{
				DBID:  dbid,
				OK:    true,
				Body:  emptyBody(),
				State: StateDone,
			}
		}
		return Result{DBID: dbid, OK: false, Error: err.Error(), State: StateFailed}
	}
	defer db.Close()

	return executeOpen(queryCtx, db, req)
}

func executeOpen(ctx context.Context, db *sql.DB, req Request) Result {
	dbid := req.Descriptor.ID

	rowCap := effectiveRowCap(req.RequestedCap, req.Descriptor.RowCap)
	limited := req.Adapter.LimitClause(rowCap, req.SQL)

	rows, err := db.QueryContext(ctx, limited)
	if err != nil {
		if dialect.IsDatabaseDoesNotExistError(err) {
			return Result{DBID: dbid, OK: true, Body: emptyBody(), State: StateDone}
		}
		return Result{DBID: dbid, OK: false, Error: err.Error(), State: StateFailed}
	}
	defer rows.Close()

	body, warnings, err := formatRows(rows, rowCap, req.Descriptor.SensitiveColumns)
	if err != nil {
		return Result{DBID: dbid, OK: false, Error: err.Error(), State: StateFailed}
	}
	return Result{DBID: dbid, OK: true, Body: body, State: StateDone, Warnings: warnings}
}

// effectiveRowCap is min(requested, configured), per spec.md §4.F.
// A non-positive bound is ignored in favour of the other one; when both
// are non-positive the cap is 100.
func effectiveRowCap(requested, configured int) int {
	rowCap := requested
	if rowCap <= 0 {
		rowCap = configured
	} else if configured > 0 && configured < rowCap {
		rowCap = configured
	}
	if rowCap <= 0 {
		rowCap = 100
	}
	return rowCap
}

func emptyBody() string {
	return "\nRows extracted: 0\n"
}

// formatRows streams *sql.Rows into the stable result body format
// (spec.md §6): a tab-joined header, tab-joined data rows capped at
// rowCap, and a "Rows extracted: N" trailer. NULL becomes the literal
// "NULL" (in sensitive columns too); any other value in a column whose
// name case-insensitively contains one of sensitiveColumns as a
// substring becomes "[SENSITIVE_DATA]".
func formatRows(rows *sql.Rows, rowCap int, sensitiveColumns []string) (string, []string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", nil, fmt.Errorf("executor: reading columns: %w", err)
	}
	mask := make([]bool, len(cols))
	for i, c := range cols {
		mask[i] = isSensitiveColumn(c, sensitiveColumns)
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, "\t"))
	b.WriteString("\n")

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	seen := make(map[string]bool)
	duplicateWarning := ""
	n := 0
	for rows.Next() {
		if n >= rowCap {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", nil, fmt.Errorf("executor: scanning row: %w", err)
		}
		fields := make([]string, len(cols))
		for i, v := range values {
			if mask[i] && v != nil {
				fields[i] = "[SENSITIVE_DATA]"
				continue
			}
			fields[i] = stringifyValue(v)
		}
		line := strings.Join(fields, "\t")
		if duplicateWarning == "" {
			if seen[line] {
				duplicateWarning = fmt.Sprintf("query returned duplicate rows (e.g. %q); consider DISTINCT", line)
			}
			seen[line] = true
		}
		b.WriteString(line)
		b.WriteString("\n")
		n++
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("executor: iterating rows: %w", err)
	}

	fmt.Fprintf(&b, "Rows extracted: %d\n", n)

	var warnings []string
	if n == 0 {
		warnings = append(warnings, "0 rows extracted")
	}
	if duplicateWarning != "" {
		warnings = append(warnings, duplicateWarning)
	}
	return b.String(), warnings, nil
}

func isSensitiveColumn(column string, sensitiveColumns []string) bool {
	lower := strings.ToLower(column)
	for _, s := range sensitiveColumns {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func stringifyValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
