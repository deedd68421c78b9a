package sqlgen

import (
	"strings"

	"reactsql/internal/catalog"
)

// stageRemoveInvalidSubqueries is stage 4: remove any parenthesised
// subquery whose FROM clause names a table absent from the snapshot.
func stageRemoveInvalidSubqueries(ctx StageContext, sql string) string {
	for _, span := range parenSpans(sql) {
		inner := strings.TrimSpace(sql[span.start+1 : span.end])
		if !startsWithSelectOrWith(inner) {
			continue
		}
		clauses := splitClauses(inner)
		if clauses.From == "" {
			continue
		}
		base, _ := parseFromClause(clauses.From)
		if base.Table == "" {
			continue
		}
		if _, ok := ctx.Snapshot.TableByName(base.Table); ok {
			continue
		}
		sql = sql[:span.start] + sql[span.end+1:]
		return stageRemoveInvalidSubqueries(ctx, sql)
	}
	return sql
}

type parenSpan struct{ start, end int }

// parenSpans finds every top-level-or-nested balanced paren span in
// sql, outside quotes, innermost spans first is not guaranteed — callers
// that mutate sql should re-scan after each removal (see
// stageRemoveInvalidSubqueries).
func parenSpans(sql string) []parenSpan {
	var spans []parenSpan
	var stack []int
	var inQuote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
		case ch == '(':
			stack = append(stack, i)
		case ch == ')':
			if len(stack) == 0 {
				continue
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			spans = append(spans, parenSpan{start: start, end: i})
		}
	}
	return spans
}

// stageRemoveInvalidJoins is stage 5: remove JOINs on tables absent
// from the snapshot and strip alias.column references whose alias was
// defined by a removed JOIN. The ON conditions of the kept JOINs are
// left as written; no foreign-key path is searched to rewrite them.
func stageRemoveInvalidJoins(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.From == "" {
		return sql
	}
	base, joins := parseFromClause(clauses.From)
	if base.Table == "" {
		return sql
	}

	var kept []joinRef
	var removedAliases []string
	present := map[string]bool{strings.ToLower(base.Table): true}
	if base.Alias != "" {
		present[strings.ToLower(base.Alias)] = true
	}

	for _, j := range joins {
		if _, ok := ctx.Snapshot.TableByName(j.Table); !ok {
			if j.Alias != "" {
				removedAliases = append(removedAliases, strings.ToLower(j.Alias))
			} else {
				removedAliases = append(removedAliases, strings.ToLower(j.Table))
			}
			continue
		}
		kept = append(kept, j)
		if j.Alias != "" {
			present[strings.ToLower(j.Alias)] = true
		} else {
			present[strings.ToLower(j.Table)] = true
		}
	}

	if len(kept) == len(joins) {
		return sql
	}

	newFrom := rebuildFromClause(base, kept)
	sql = replaceClauseBody(sql, "FROM", clauses.From, newFrom)

	if len(removedAliases) > 0 {
		sql = stripReferencesToAliases(sql, removedAliases)
	}
	return sql
}

func rebuildFromClause(base tableRef, joins []joinRef) string {
	var b strings.Builder
	b.WriteString(base.Table)
	if base.Alias != "" {
		b.WriteString(" ")
		b.WriteString(base.Alias)
	}
	for _, j := range joins {
		b.WriteString(" ")
		if j.Kind != "" {
			b.WriteString(j.Kind)
		} else {
			b.WriteString("JOIN")
		}
		b.WriteString(" ")
		b.WriteString(j.Table)
		if j.Alias != "" {
			b.WriteString(" ")
			b.WriteString(j.Alias)
		}
		if j.On != "" {
			b.WriteString(" ON ")
			b.WriteString(j.On)
		}
	}
	return b.String()
}

// replaceClauseBody replaces the first occurrence of keyword+oldBody
// in sql with keyword+newBody. Used by stages that rewrite one clause
// at a time via splitClauses/parseFromClause round-trips.
func replaceClauseBody(sql, keyword, oldBody, newBody string) string {
	if oldBody == newBody {
		return sql
	}
	idx := findTopLevelKeyword(sql, keyword, 0)
	if idx < 0 {
		return sql
	}
	start := idx + len(keyword)
	// oldBody was trimmed; locate it within the raw (untrimmed) clause span.
	clauseEnd := start + strings.Index(sql[start:], oldBody) + len(oldBody)
	if strings.Index(sql[start:], oldBody) < 0 {
		return sql
	}
	bodyStart := start + strings.Index(sql[start:], oldBody)
	return sql[:bodyStart] + newBody + sql[clauseEnd:]
}

// stripReferencesToAliases removes "alias.column" tokens whose alias
// matches one of removedAliases, generalized as simple elision (the
// surrounding comma/operator cleanup is left to stage 14).
func stripReferencesToAliases(sql string, removedAliases []string) string {
	return rewriteIdentifiers(sql, func(tok string) (string, bool) {
		segs := strings.Split(tok, ".")
		if len(segs) != 2 {
			return tok, false
		}
		for _, a := range removedAliases {
			if strings.EqualFold(segs[0], a) {
				return "", true
			}
		}
		return tok, false
	})
}

// stageRepairUndefinedAliases is stage 6: for each alias.column where
// the alias resolves to a table lacking column, rebind to the alias of
// a snapshot table that does own column, when the choice is unique.
func stageRepairUndefinedAliases(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.From == "" {
		return sql
	}
	base, joins := parseFromClause(clauses.From)
	aliasTable := aliasTableMap(ctx.Snapshot, base, joins)

	return rewriteIdentifiers(sql, func(tok string) (string, bool) {
		segs := strings.Split(tok, ".")
		if len(segs) != 2 {
			return tok, false
		}
		alias, column := segs[0], segs[1]
		tableName, ok := aliasTable[strings.ToLower(alias)]
		if !ok {
			return tok, false
		}
		table, ok := ctx.Snapshot.TableByName(tableName)
		if !ok {
			return tok, false
		}
		if _, ok := table.ColumnByName(column); ok {
			return tok, false
		}
		owner, unique := uniqueOwnerOf(ctx.Snapshot, aliasTable, column)
		if !unique {
			return tok, false
		}
		return owner + "." + column, true
	})
}

// aliasTableMap maps every alias (or bare table name when unaliased)
// used in the FROM clause to its underlying table name.
func aliasTableMap(snapshot *catalog.SchemaSnapshot, base tableRef, joins []joinRef) map[string]string {
	m := map[string]string{}
	add := func(ref tableRef) {
		key := ref.Table
		if ref.Alias != "" {
			key = ref.Alias
		}
		m[strings.ToLower(key)] = ref.Table
	}
	add(base)
	for _, j := range joins {
		add(tableRef{Table: j.Table, Alias: j.Alias})
	}
	return m
}

// uniqueOwnerOf returns the alias (from aliasTable) of the single
// joined table that owns column, or ("", false) if zero or more than
// one candidate owns it.
func uniqueOwnerOf(snapshot *catalog.SchemaSnapshot, aliasTable map[string]string, column string) (string, bool) {
	var owner string
	count := 0
	for alias, tableName := range aliasTable {
		table, ok := snapshot.TableByName(tableName)
		if !ok {
			continue
		}
		if _, ok := table.ColumnByName(column); ok {
			owner = alias
			count++
		}
	}
	if count == 1 {
		return owner, true
	}
	return "", false
}

// stageAggregateArgRepair is stage 12: if AGG(alias.col) refers to a
// non-existent column, search all snapshot tables for that column; if
// found, inject an INNER JOIN to that table along its FK relationship
// to a table already in the query.
func stageAggregateArgRepair(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.From == "" || clauses.Select == "" {
		return sql
	}
	base, joins := parseFromClause(clauses.From)
	aliasTable := aliasTableMap(ctx.Snapshot, base, joins)
	present := presentTableSet(ctx.Snapshot, base, joins)

	for _, agg := range aggregateFunctions {
		for _, match := range findAggregateCalls(sql, agg) {
			segs := strings.Split(match.Arg, ".")
			if len(segs) != 2 {
				continue
			}
			alias, column := segs[0], segs[1]
			tableName, ok := aliasTable[strings.ToLower(alias)]
			if !ok {
				continue
			}
			table, ok := ctx.Snapshot.TableByName(tableName)
			if ok {
				if _, ok := table.ColumnByName(column); ok {
					continue
				}
			}
			owner, fk, ok := findOwningTableWithFKPath(ctx.Snapshot, column, present)
			if !ok {
				continue
			}
			newFrom := rebuildFromClause(base, append(append([]joinRef{}, joins...), joinRef{
				Kind:  "INNER JOIN",
				Table: owner,
				On:    fk,
			}))
			sql = replaceClauseBody(sql, "FROM", clauses.From, newFrom)
			return sql
		}
	}
	return sql
}

var aggregateFunctions = []string{"COUNT", "SUM", "AVG", "MIN", "MAX"}

type aggregateCall struct{ Arg string }

func findAggregateCalls(sql string, fn string) []aggregateCall {
	var calls []aggregateCall
	upper := strings.ToUpper(sql)
	search := fn + "("
	idx := 0
	for {
		pos := strings.Index(upper[idx:], search)
		if pos < 0 {
			break
		}
		start := idx + pos + len(search)
		end := strings.IndexByte(sql[start:], ')')
		if end < 0 {
			break
		}
		calls = append(calls, aggregateCall{Arg: strings.TrimSpace(sql[start : start+end])})
		idx = start + end + 1
	}
	return calls
}

func presentTableSet(snapshot *catalog.SchemaSnapshot, base tableRef, joins []joinRef) map[string]bool {
	set := map[string]bool{}
	if t, ok := snapshot.TableByName(base.Table); ok {
		set[t.QualifiedName] = true
	}
	for _, j := range joins {
		if t, ok := snapshot.TableByName(j.Table); ok {
			set[t.QualifiedName] = true
		}
	}
	return set
}

// findOwningTableWithFKPath searches every snapshot table for column;
// if the owner has an FK relationship (in either direction) to a table
// already present in the query, returns the owner's qualified name and
// a usable ON condition.
func findOwningTableWithFKPath(snapshot *catalog.SchemaSnapshot, column string, present map[string]bool) (table, on string, ok bool) {
	for i := range snapshot.Tables {
		candidate := &snapshot.Tables[i]
		if present[candidate.QualifiedName] {
			continue
		}
		if _, has := candidate.ColumnByName(column); !has {
			continue
		}
		for _, fk := range candidate.ForeignKeys {
			if present[fk.ReferencedTable] {
				return candidate.QualifiedName, candidate.QualifiedName + "." + fk.LocalColumn + " = " + fk.ReferencedTable + "." + fk.ReferencedColumn, true
			}
		}
		for other := range present {
			if otherTable, ok := snapshot.TableByName(other); ok {
				for _, fk := range otherTable.ForeignKeys {
					if fk.ReferencedTable == candidate.QualifiedName {
						return candidate.QualifiedName, otherTable.QualifiedName + "." + fk.LocalColumn + " = " + candidate.QualifiedName + "." + fk.ReferencedColumn, true
					}
				}
			}
		}
	}
	return "", "", false
}

// stageAddMissingMappingJoins is stage 16: for every required mapping
// column whose table is not yet joined, inject a LEFT JOIN using the
// FK from an existing table to the mapping table.
func stageAddMissingMappingJoins(ctx StageContext, sql string) string {
	if len(ctx.Mappings) == 0 {
		return sql
	}
	clauses := splitClauses(sql)
	if clauses.From == "" {
		return sql
	}
	base, joins := parseFromClause(clauses.From)
	present := presentTableSet(ctx.Snapshot, base, joins)

	for _, mapping := range ctx.Mappings {
		table, ok := ctx.Snapshot.TableByName(mapping.Table)
		if !ok || present[table.QualifiedName] {
			continue
		}
		on, ok := findFKJoinCondition(ctx.Snapshot, table.QualifiedName, present)
		if !ok {
			continue
		}
		joins = append(joins, joinRef{Kind: "LEFT JOIN", Table: table.QualifiedName, On: on})
		present[table.QualifiedName] = true
	}

	newFrom := rebuildFromClause(base, joins)
	return replaceClauseBody(sql, "FROM", clauses.From, newFrom)
}

func findFKJoinCondition(snapshot *catalog.SchemaSnapshot, target string, present map[string]bool) (string, bool) {
	targetTable, ok := snapshot.TableByName(target)
	if !ok {
		return "", false
	}
	for _, fk := range targetTable.ForeignKeys {
		if present[fk.ReferencedTable] {
			return target + "." + fk.LocalColumn + " = " + fk.ReferencedTable + "." + fk.ReferencedColumn, true
		}
	}
	for other := range present {
		otherTable, ok := snapshot.TableByName(other)
		if !ok {
			continue
		}
		for _, fk := range otherTable.ForeignKeys {
			if fk.ReferencedTable == target {
				return otherTable.QualifiedName + "." + fk.LocalColumn + " = " + target + "." + fk.ReferencedColumn, true
			}
		}
	}
	return "", false
}
