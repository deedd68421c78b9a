package sqlgen

import (
	"strings"
)

// stageSubstituteMappingColumn is stage 8: when a mapping's target
// database SQL still names the source column but the target table
// owns only the target column, substitute it.
func stageSubstituteMappingColumn(ctx StageContext, sql string) string {
	if len(ctx.Mappings) == 0 || ctx.Snapshot == nil {
		return sql
	}
	for _, mapping := range ctx.Mappings {
		if mapping.SourceColumn == "" || strings.EqualFold(mapping.SourceColumn, mapping.Column) {
			continue
		}
		table, ok := ctx.Snapshot.TableByName(mapping.Table)
		if !ok {
			continue
		}
		if _, ok := table.ColumnByName(mapping.SourceColumn); ok {
			continue // this table happens to also own the source name
		}
		if _, ok := table.ColumnByName(mapping.Column); !ok {
			continue
		}
		if !containsWholeWordFold(sql, mapping.SourceColumn) {
			continue
		}
		sql = replaceWholeWordFold(sql, mapping.SourceColumn, mapping.Column)
	}
	return sql
}

// replaceWholeWordFold replaces every whole-word, case-insensitive
// occurrence of old with replacement in s.
func replaceWholeWordFold(s, old, replacement string) string {
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	var b strings.Builder
	i := 0
	for i < len(s) {
		pos := strings.Index(lower[i:], oldLower)
		if pos < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + pos
		end := start + len(old)
		if wordBoundaryAt(lower, start, end) {
			b.WriteString(s[i:start])
			b.WriteString(replacement)
			i = end
		} else {
			b.WriteString(s[i : start+1])
			i = start + 1
		}
	}
	return b.String()
}

var descriptiveColumnCandidates = []string{
	"Name", "Title", "Description", "City", "Address", "Location", "Text", "Label", "FirstName", "LastName",
}

// stageInjectMissingMappingColumns is stage 17: inject missing mapping
// columns into SELECT (and GROUP BY when aggregating).
func stageInjectMissingMappingColumns(ctx StageContext, sql string) string {
	if len(ctx.Mappings) == 0 {
		return sql
	}
	clauses := splitClauses(sql)
	if clauses.Select == "" {
		return sql
	}

	present := map[string]bool{}
	for _, item := range selectItems(clauses.Select) {
		present[normaliseExpr(stripAlias(item))] = true
	}

	var toAdd []string
	for _, mapping := range ctx.Mappings {
		ref := mapping.Column
		if !containsWholeWordFold(clauses.Select, mapping.Column) {
			if table, ok := ctx.Snapshot.TableByName(mapping.Table); ok {
				ref = table.QualifiedName + "." + mapping.Column
			}
			toAdd = append(toAdd, ref)
		}
	}
	if len(toAdd) == 0 {
		return sql
	}

	newSelect := clauses.Select + ", " + strings.Join(toAdd, ", ")
	sql = replaceClauseBody(sql, "SELECT", clauses.Select, newSelect)

	if anyAggregateCall(selectItems(clauses.Select)) {
		clauses = splitClauses(sql)
		newGroupBy := toAdd
		if clauses.GroupBy != "" {
			return replaceClauseBody(sql, "GROUP BY", clauses.GroupBy, clauses.GroupBy+", "+strings.Join(newGroupBy, ", "))
		}
		return insertGroupByClause(sql, strings.Join(newGroupBy, ", "))
	}
	return sql
}

func containsWholeWordFold(haystack, word string) bool {
	lower := strings.ToLower(haystack)
	w := strings.ToLower(word)
	idx := 0
	for {
		pos := strings.Index(lower[idx:], w)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(w)
		if wordBoundaryAt(lower, start, end) {
			return true
		}
		idx = end
	}
}

// stageInjectDescriptiveColumns is stage 18: when the query uses
// "WHERE mapCol IN (...)" for a required mapping column and the mapping
// table also carries descriptive columns, add up to three such columns
// to SELECT. It does not distinguish the source side of a mapping from
// the target side: any required mapping column with such a predicate
// qualifies.
func stageInjectDescriptiveColumns(ctx StageContext, sql string) string {
	if len(ctx.Mappings) == 0 {
		return sql
	}
	clauses := splitClauses(sql)
	if clauses.Where == "" || clauses.Select == "" {
		return sql
	}

	for _, mapping := range ctx.Mappings {
		if !containsINPredicate(clauses.Where, mapping.Column) {
			continue
		}
		table, ok := ctx.Snapshot.TableByName(mapping.Table)
		if !ok {
			continue
		}
		var descriptive []string
		for _, col := range table.Columns {
			if len(descriptive) >= 3 {
				break
			}
			if isDescriptiveColumnName(col.Name) && !containsWholeWordFold(clauses.Select, col.Name) {
				descriptive = append(descriptive, col.Name)
			}
		}
		if len(descriptive) == 0 {
			continue
		}
		newSelect := clauses.Select + ", " + strings.Join(descriptive, ", ")
		return replaceClauseBody(sql, "SELECT", clauses.Select, newSelect)
	}
	return sql
}

func isDescriptiveColumnName(name string) bool {
	for _, candidate := range descriptiveColumnCandidates {
		if strings.EqualFold(name, candidate) || strings.Contains(strings.ToLower(name), strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

func containsINPredicate(where, column string) bool {
	lower := strings.ToLower(where)
	return strings.Contains(lower, strings.ToLower(column)+" in") || strings.Contains(lower, strings.ToLower(column)+" IN")
}
