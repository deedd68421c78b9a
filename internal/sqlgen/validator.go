package sqlgen

import (
	"fmt"
	"strings"
)

var forbiddenPlaceholders = []string{
	"ABOVE QUERY", "YOUR QUERY", "SUBQUERY HERE", "PLACEHOLDER", "INSERT QUERY",
}

// Validate implements the final validator of spec.md §4.D.3: balanced
// parentheses, no forbidden placeholders, every table/column reference
// exists in the snapshot, and every required mapping column appears.
func Validate(ctx StageContext, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("empty SQL")
	}
	// Comments are excluded from every check below; the execute gate
	// (internal/executor) still applies SyntaxCheck to the raw SQL.
	stripped := stripCommentsForValidator(sql)
	if ok, msg := ctx.Adapter.SyntaxCheck(stripped); !ok {
		return fmt.Errorf("syntax check failed: %s", msg)
	}

	upperStripped := strings.ToUpper(stripped)
	for _, placeholder := range forbiddenPlaceholders {
		if strings.Contains(upperStripped, placeholder) {
			return fmt.Errorf("forbidden placeholder present: %s", placeholder)
		}
	}

	if err := validateReferences(ctx, sql); err != nil {
		return err
	}

	for _, mapping := range ctx.Mappings {
		if !containsWholeWordFold(sql, mapping.Column) {
			return fmt.Errorf("required mapping column %q is missing from the final SQL", mapping.Column)
		}
	}
	return nil
}

func stripCommentsForValidator(sql string) string {
	var b strings.Builder
	i := 0
	n := len(sql)
	for i < n {
		if sql[i] == '-' && i+1 < n && sql[i+1] == '-' {
			for i < n && sql[i] != '\n' {
				i++
			}
			continue
		}
		if sql[i] == '/' && i+1 < n && sql[i+1] == '*' {
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i += 2
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

// validateReferences checks that every table named in FROM/JOIN and
// every alias.column pair scanned from sql resolves against ctx.Snapshot.
func validateReferences(ctx StageContext, sql string) error {
	clauses := splitClauses(sql)
	if clauses.From == "" {
		return nil
	}
	base, joins := parseFromClause(clauses.From)

	if _, ok := ctx.Snapshot.TableByName(base.Table); !ok {
		return fmt.Errorf("unknown table %q", base.Table)
	}
	for _, j := range joins {
		if _, ok := ctx.Snapshot.TableByName(j.Table); !ok {
			return fmt.Errorf("unknown table %q", j.Table)
		}
	}

	aliasTable := aliasTableMap(ctx.Snapshot, base, joins)
	for _, tok := range scanIdentifiers(sql) {
		segs := strings.Split(tok.Text, ".")
		if len(segs) != 2 {
			continue
		}
		tableName, ok := aliasTable[strings.ToLower(segs[0])]
		if !ok {
			continue
		}
		table, ok := ctx.Snapshot.TableByName(tableName)
		if !ok {
			return fmt.Errorf("unknown table %q", tableName)
		}
		if _, ok := table.ColumnByName(segs[1]); !ok {
			return fmt.Errorf("unknown column %q on table %q", segs[1], table.QualifiedName)
		}
	}
	return nil
}
