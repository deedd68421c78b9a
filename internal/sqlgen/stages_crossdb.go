package sqlgen

import (
	"strings"

	"reactsql/internal/catalog"
)

// stageStripOwnDBPrefix is stage 2: a three-part db.schema.table or
// two-part db.table identifier whose leading segment equals this
// snapshot's own database name is shortened to the longest form
// actually present in the snapshot.
func stageStripOwnDBPrefix(ctx StageContext, sql string) string {
	ownNames := ownDatabaseNames(ctx)
	if len(ownNames) == 0 {
		return sql
	}
	aliases := queryAliasNames(sql)

	return rewriteIdentifiers(sql, func(tok string) (string, bool) {
		segs := strings.Split(tok, ".")
		if len(segs) < 2 {
			return tok, false
		}
		if len(segs) == 2 && aliases[strings.ToLower(segs[0])] {
			return tok, false
		}
		if !containsFold(ownNames, segs[0]) {
			return tok, false
		}
		rest := segs[1:]
		if resolved, ok := longestPresentForm(ctx.Snapshot, rest); ok {
			return resolved, true
		}
		return strings.Join(rest, "."), true
	})
}

// stageRepairCrossDBReferences is stage 3: a three-part identifier
// naming a different database, or a two-part identifier that is
// neither a valid table nor a valid (table,column) pair, is replaced
// by the closest matching table in the snapshot (longest-suffix match
// on the last segment); with no match, the identifier is elided.
func stageRepairCrossDBReferences(ctx StageContext, sql string) string {
	ownNames := ownDatabaseNames(ctx)
	aliases := queryAliasNames(sql)

	return rewriteIdentifiers(sql, func(tok string) (string, bool) {
		segs := strings.Split(tok, ".")
		switch len(segs) {
		case 3:
			if containsFold(ownNames, segs[0]) {
				return tok, false
			}
			if match, ok := closestTableMatch(ctx.Snapshot, segs[2]); ok {
				return match, true
			}
			return "", true
		case 2:
			// alias.column pairs declared in this query's own FROM
			// clause are left for the alias/column repair stages (6,
			// 11) to validate; this stage only targets references to
			// a database/table that isn't part of the current query.
			if aliases[strings.ToLower(segs[0])] {
				return tok, false
			}
			if containsFold(ownNames, segs[0]) {
				return tok, false
			}
			if isValidTableOrColumnPair(ctx.Snapshot, segs[0], segs[1]) {
				return tok, false
			}
			if match, ok := closestTableMatch(ctx.Snapshot, segs[1]); ok {
				return match, true
			}
			return "", true
		default:
			return tok, false
		}
	})
}

// queryAliasNames returns the lower-cased set of table names and
// aliases declared in sql's own FROM clause, used to tell a genuine
// cross-database reference apart from an ordinary alias.column
// reference that later stages are responsible for validating.
func queryAliasNames(sql string) map[string]bool {
	set := map[string]bool{}
	clauses := splitClauses(sql)
	if clauses.From == "" {
		return set
	}
	base, joins := parseFromClause(clauses.From)
	add := func(ref tableRef) {
		set[strings.ToLower(ref.Table)] = true
		if ref.Alias != "" {
			set[strings.ToLower(ref.Alias)] = true
		}
	}
	add(base)
	for _, j := range joins {
		add(tableRef{Table: j.Table, Alias: j.Alias})
	}
	return set
}

func ownDatabaseNames(ctx StageContext) []string {
	if ctx.Snapshot == nil {
		return nil
	}
	var names []string
	if ctx.Snapshot.DBID != "" {
		names = append(names, ctx.Snapshot.DBID)
	}
	if ctx.Snapshot.DisplayName != "" {
		names = append(names, ctx.Snapshot.DisplayName)
	}
	return names
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// longestPresentForm resolves the remaining dotted segments (e.g.
// ["schema", "table"] or ["table"]) to the longest qualified form
// actually present in the snapshot.
func longestPresentForm(snapshot *catalog.SchemaSnapshot, segs []string) (string, bool) {
	if snapshot == nil || len(segs) == 0 {
		return "", false
	}
	joined := strings.Join(segs, ".")
	if table, ok := snapshot.TableByName(joined); ok {
		return table.QualifiedName, true
	}
	last := segs[len(segs)-1]
	if table, ok := snapshot.TableByName(last); ok {
		return table.QualifiedName, true
	}
	return "", false
}

// isValidTableOrColumnPair reports whether tableOrAlias.column names a
// real (table,column) pair in the snapshot.
func isValidTableOrColumnPair(snapshot *catalog.SchemaSnapshot, tableOrAlias, column string) bool {
	if snapshot == nil {
		return false
	}
	table, ok := snapshot.TableByName(tableOrAlias)
	if !ok {
		return false
	}
	_, ok = table.ColumnByName(column)
	return ok
}

// closestTableMatch finds the snapshot table whose short name is the
// longest suffix match of lastSegment (spec.md §4.D.3 stage 3).
func closestTableMatch(snapshot *catalog.SchemaSnapshot, lastSegment string) (string, bool) {
	if snapshot == nil {
		return "", false
	}
	lower := strings.ToLower(lastSegment)
	var best *catalog.TableSchema
	bestLen := -1
	for i := range snapshot.Tables {
		table := &snapshot.Tables[i]
		short := strings.ToLower(shortTableName(table.QualifiedName))
		if short == lower {
			return table.QualifiedName, true
		}
		if strings.HasSuffix(lower, short) && len(short) > bestLen {
			best = table
			bestLen = len(short)
		} else if strings.HasSuffix(short, lower) && len(lower) > bestLen {
			best = table
			bestLen = len(lower)
		}
	}
	if best != nil {
		return best.QualifiedName, true
	}
	return "", false
}

// rewriteIdentifiers rewrites every dotted identifier token scanIdentifiers
// finds according to rewrite, which returns (replacement, changed).
func rewriteIdentifiers(sql string, rewrite func(tok string) (string, bool)) string {
	tokens := scanIdentifiers(sql)
	if len(tokens) == 0 {
		return sql
	}

	var b strings.Builder
	last := 0
	for _, tok := range tokens {
		replacement, changed := rewrite(tok.Text)
		if !changed {
			continue
		}
		b.WriteString(sql[last:tok.Start])
		b.WriteString(replacement)
		last = tok.End
	}
	b.WriteString(sql[last:])
	return b.String()
}
