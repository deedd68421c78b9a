package sqlgen

import (
	"strings"

	"reactsql/internal/catalog"
)

// stageOrderByRepair is stage 15: any ORDER BY term that is not a
// valid column and not a known alias is replaced by "1".
func stageOrderByRepair(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.OrderBy == "" {
		return sql
	}

	selectAliases := map[string]bool{}
	for _, item := range selectItems(clauses.Select) {
		if alias := aliasOf(item); alias != "" {
			selectAliases[strings.ToLower(alias)] = true
		}
	}

	var base tableRef
	var joins []joinRef
	if clauses.From != "" {
		base, joins = parseFromClause(clauses.From)
	}
	aliasTable := aliasTableMap(ctx.Snapshot, base, joins)

	terms := splitTopLevel(clauses.OrderBy, ',')
	changed := false
	for i, term := range terms {
		trimmed := strings.TrimSpace(term)
		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			continue
		}
		expr := fields[0]
		direction := ""
		if len(fields) > 1 {
			direction = " " + strings.Join(fields[1:], " ")
		}
		if isOrdinalLiteral(expr) {
			continue
		}
		if selectAliases[strings.ToLower(expr)] {
			continue
		}
		if isValidOrderByColumnRef(ctx.Snapshot, aliasTable, expr) {
			continue
		}
		terms[i] = "1" + direction
		changed = true
	}
	if !changed {
		return sql
	}
	return replaceClauseBody(sql, "ORDER BY", clauses.OrderBy, strings.Join(terms, ", "))
}

func isOrdinalLiteral(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isValidOrderByColumnRef reports whether expr is a bare column name
// owned by some present table, or an alias.column pair that resolves.
func isValidOrderByColumnRef(snapshot *catalog.SchemaSnapshot, aliasTable map[string]string, expr string) bool {
	if snapshot == nil {
		return false
	}
	if segs := strings.Split(expr, "."); len(segs) == 2 {
		tableName, ok := aliasTable[strings.ToLower(segs[0])]
		if !ok {
			return false
		}
		table, ok := snapshot.TableByName(tableName)
		if !ok {
			return false
		}
		_, ok = table.ColumnByName(segs[1])
		return ok
	}
	for alias := range aliasTable {
		tableName := aliasTable[alias]
		if table, ok := snapshot.TableByName(tableName); ok {
			if _, ok := table.ColumnByName(expr); ok {
				return true
			}
		}
	}
	return false
}
