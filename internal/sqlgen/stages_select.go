package sqlgen

import (
	"regexp"
	"strings"

	"reactsql/internal/catalog"
)

var emptySelectPattern = regexp.MustCompile(`(?i)SELECT\s+FROM\b`)

// stageFixEmptySelectList is stage 7: when repair left "SELECT FROM
// ...", insert a mapping-required column if known, otherwise the first
// primary key, otherwise the first column.
func stageFixEmptySelectList(ctx StageContext, sql string) string {
	if !emptySelectPattern.MatchString(sql) {
		return sql
	}
	col := firstMappingColumn(ctx)
	if col == "" {
		col = firstPrimaryKeyOrColumn(ctx.Snapshot)
	}
	if col == "" {
		col = "*"
	}
	return emptySelectPattern.ReplaceAllString(sql, "SELECT "+col+" FROM")
}

func firstMappingColumn(ctx StageContext) string {
	if len(ctx.Mappings) == 0 {
		return ""
	}
	return ctx.Mappings[0].Column
}

func firstPrimaryKeyOrColumn(snapshot *catalog.SchemaSnapshot) string {
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return ""
	}
	table := snapshot.Tables[0]
	if len(table.PrimaryKeys) > 0 {
		return table.PrimaryKeys[0]
	}
	if len(table.Columns) > 0 {
		return table.Columns[0].Name
	}
	return ""
}

var concatenatedIdentifierPattern = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]*_[A-Za-z][A-Za-z0-9_]*)\.([A-Za-z][A-Za-z0-9_]*)\b`)

// stageRepairConcatenatedIdentifiers is stage 9: repair identifiers
// like "schema_table.column" that only make sense when the
// underscore-joined prefix is split into its own table reference
// present in the snapshot.
func stageRepairConcatenatedIdentifiers(ctx StageContext, sql string) string {
	if ctx.Snapshot == nil {
		return sql
	}
	return concatenatedIdentifierPattern.ReplaceAllStringFunc(sql, func(m string) string {
		sub := concatenatedIdentifierPattern.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		joined := sub[1]
		if _, ok := ctx.Snapshot.TableByName(joined); ok {
			return m
		}
		parts := strings.SplitN(joined, "_", 2)
		if len(parts) != 2 {
			return m
		}
		if table, ok := ctx.Snapshot.TableByName(parts[1]); ok {
			return table.QualifiedName + "." + sub[2]
		}
		return m
	})
}

var columnAsFunctionPattern = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_.]*)\s*\(\s*\*?\s*\)\s+AS\s+(\w*[Cc]ount\w*)\b`)

// stageColumnUsedAsFunction is stage 10: if a known column name appears
// as col(...) aliased AS *Count*, rewrite to COUNT(col).
func stageColumnUsedAsFunction(ctx StageContext, sql string) string {
	if ctx.Snapshot == nil {
		return sql
	}
	return columnAsFunctionPattern.ReplaceAllStringFunc(sql, func(m string) string {
		sub := columnAsFunctionPattern.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		name := sub[1]
		alias := sub[2]
		segs := strings.Split(name, ".")
		col := segs[len(segs)-1]
		if !columnExistsAnywhere(ctx.Snapshot, col) {
			return m
		}
		return "COUNT(" + name + ") AS " + alias
	})
}

func columnExistsAnywhere(snapshot *catalog.SchemaSnapshot, column string) bool {
	for _, table := range snapshot.Tables {
		if _, ok := table.ColumnByName(column); ok {
			return true
		}
	}
	return false
}

// stageReplaceInvalidColumnReferences is stage 11: an alias.col
// pointing into a valid table but to a non-existent column is replaced
// by the column whose name is the longest suffix-matching member of
// that table's columns; failing that, the table's primary key.
func stageReplaceInvalidColumnReferences(ctx StageContext, sql string) string {
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
		if replacement, ok := longestSuffixMatchingColumn(table, column); ok {
			return alias + "." + replacement, true
		}
		if len(table.PrimaryKeys) > 0 {
			return alias + "." + table.PrimaryKeys[0], true
		}
		return tok, false
	})
}

func longestSuffixMatchingColumn(table *catalog.TableSchema, want string) (string, bool) {
	lowerWant := strings.ToLower(want)
	var best string
	bestLen := -1
	for _, col := range table.Columns {
		lowerCol := strings.ToLower(col.Name)
		if strings.HasSuffix(lowerWant, lowerCol) && len(lowerCol) > bestLen {
			best, bestLen = col.Name, len(lowerCol)
		} else if strings.HasSuffix(lowerCol, lowerWant) && len(lowerWant) > bestLen {
			best, bestLen = col.Name, len(lowerWant)
		}
	}
	if bestLen >= 0 {
		return best, true
	}
	return "", false
}

// stageGroupByClosure is stage 13: add every non-aggregate SELECT-list
// expression to GROUP BY.
func stageGroupByClosure(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.Select == "" {
		return sql
	}
	items := selectItems(clauses.Select)
	if !anyAggregateCall(items) {
		return sql
	}

	existingGroupBy := map[string]bool{}
	for _, g := range splitTopLevel(clauses.GroupBy, ',') {
		existingGroupBy[normaliseExpr(g)] = true
	}

	var toAdd []string
	for _, item := range items {
		if isAggregateExpr(item) {
			continue
		}
		expr := stripAlias(item)
		if existingGroupBy[normaliseExpr(expr)] {
			continue
		}
		toAdd = append(toAdd, expr)
		existingGroupBy[normaliseExpr(expr)] = true
	}
	if len(toAdd) == 0 {
		return sql
	}

	newGroupBy := clauses.GroupBy
	if newGroupBy == "" {
		newGroupBy = strings.Join(toAdd, ", ")
		return insertGroupByClause(sql, newGroupBy)
	}
	newGroupBy = newGroupBy + ", " + strings.Join(toAdd, ", ")
	return replaceClauseBody(sql, "GROUP BY", clauses.GroupBy, newGroupBy)
}

func anyAggregateCall(items []string) bool {
	for _, item := range items {
		if isAggregateExpr(item) {
			return true
		}
	}
	return false
}

func isAggregateExpr(expr string) bool {
	upper := strings.ToUpper(expr)
	for _, fn := range aggregateFunctions {
		if strings.Contains(upper, fn+"(") {
			return true
		}
	}
	return false
}

func stripAlias(expr string) string {
	upper := strings.ToUpper(expr)
	if idx := strings.LastIndex(upper, " AS "); idx >= 0 {
		return strings.TrimSpace(expr[:idx])
	}
	return expr
}

func normaliseExpr(expr string) string {
	return strings.ToLower(strings.Join(strings.Fields(expr), " "))
}

// insertGroupByClause inserts "GROUP BY body" immediately before
// ORDER BY/LIMIT if present, else at the end of sql.
func insertGroupByClause(sql, body string) string {
	for _, kw := range []string{"ORDER BY", "LIMIT"} {
		if idx := findTopLevelKeyword(sql, kw, 0); idx >= 0 {
			return strings.TrimRight(sql[:idx], " ") + " GROUP BY " + body + " " + sql[idx:]
		}
	}
	return strings.TrimRight(sql, " ;") + " GROUP BY " + body
}

// stageRemoveInvalidColumns is stage 14: remove invalid columns from
// SELECT and GROUP BY; cleanup trailing commas and duplicate
// DESC/ASC is handled implicitly by re-joining the surviving items.
func stageRemoveInvalidColumns(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.Select == "" || clauses.From == "" {
		return sql
	}
	base, joins := parseFromClause(clauses.From)
	aliasTable := aliasTableMap(ctx.Snapshot, base, joins)

	items := selectItems(clauses.Select)
	var kept []string
	for _, item := range items {
		if selectItemReferencesUnknownColumn(item, ctx.Snapshot, aliasTable) {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		kept = items
	}
	if len(kept) != len(items) {
		sql = replaceClauseBody(sql, "SELECT", clauses.Select, strings.Join(kept, ", "))
	}

	groupItems := selectItems(clauses.GroupBy)
	var keptGroup []string
	for _, item := range groupItems {
		if !selectItemReferencesUnknownColumn(item, ctx.Snapshot, aliasTable) {
			keptGroup = append(keptGroup, item)
		}
	}
	if len(keptGroup) > 0 && len(keptGroup) != len(groupItems) {
		sql = replaceClauseBody(sql, "GROUP BY", clauses.GroupBy, strings.Join(keptGroup, ", "))
	}
	return sql
}

// selectItemReferencesUnknownColumn is a conservative check: only
// rejects a plain "alias.column" item when the alias is known and the
// column is provably absent; expressions, *, and literals always pass.
func selectItemReferencesUnknownColumn(item string, snapshot *catalog.SchemaSnapshot, aliasTable map[string]string) bool {
	expr := stripAlias(item)
	expr = strings.TrimSpace(expr)
	if !isPlainDottedIdentifier(expr) {
		return false
	}
	segs := strings.Split(expr, ".")
	if len(segs) != 2 {
		return false
	}
	tableName, ok := aliasTable[strings.ToLower(segs[0])]
	if !ok {
		return false
	}
	table, ok := snapshot.TableByName(tableName)
	if !ok {
		return false
	}
	_, ok = table.ColumnByName(segs[1])
	return !ok
}

func isPlainDottedIdentifier(s string) bool {
	if s == "" || strings.ContainsAny(s, "()+-*/ ") {
		return false
	}
	return strings.Count(s, ".") == 1
}

// stageDisambiguateColumns is stage 19: qualify SELECT-list bare
// columns that exist in more than one joined table with the preferred
// alias (driving table if unique, else first declared).
func stageDisambiguateColumns(ctx StageContext, sql string) string {
	clauses := splitClauses(sql)
	if clauses.Select == "" || clauses.From == "" {
		return sql
	}
	base, joins := parseFromClause(clauses.From)
	if len(joins) == 0 {
		return sql
	}
	tables := presentTablesInOrder(ctx.Snapshot, base, joins)
	aliasTable := aliasTableMap(ctx.Snapshot, base, joins)
	baseAlias := base.Alias
	if baseAlias == "" {
		baseAlias = base.Table
	}

	items := selectItems(clauses.Select)
	changed := false
	for i, item := range items {
		expr := strings.TrimSpace(item)
		if !isBareIdentifier(expr) {
			continue
		}
		owners := ownersOf(expr, tables, ctx.Snapshot)
		if len(owners) < 2 {
			continue
		}
		alias := baseAlias
		if !containsTable(owners, base.Table) && len(owners) > 0 {
			if a, ok := aliasFor(owners[0], aliasTable); ok {
				alias = a
			}
		}
		items[i] = alias + "." + expr
		changed = true
	}
	if !changed {
		return sql
	}
	return replaceClauseBody(sql, "SELECT", clauses.Select, strings.Join(items, ", "))
}

func isBareIdentifier(s string) bool {
	if s == "" || strings.ContainsAny(s, "().+-*/ \t") {
		return false
	}
	return !strings.Contains(s, ".")
}

func presentTablesInOrder(snapshot *catalog.SchemaSnapshot, base tableRef, joins []joinRef) []string {
	var out []string
	if t, ok := snapshot.TableByName(base.Table); ok {
		out = append(out, t.QualifiedName)
	}
	for _, j := range joins {
		if t, ok := snapshot.TableByName(j.Table); ok {
			out = append(out, t.QualifiedName)
		}
	}
	return out
}

func ownersOf(column string, tables []string, snapshot *catalog.SchemaSnapshot) []string {
	var owners []string
	for _, t := range tables {
		table, ok := snapshot.TableByName(t)
		if !ok {
			continue
		}
		if _, ok := table.ColumnByName(column); ok {
			owners = append(owners, t)
		}
	}
	return owners
}

func containsTable(tables []string, name string) bool {
	for _, t := range tables {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

func aliasFor(tableName string, aliasTable map[string]string) (string, bool) {
	for alias, t := range aliasTable {
		if strings.EqualFold(t, tableName) {
			return alias, true
		}
	}
	return "", false
}
