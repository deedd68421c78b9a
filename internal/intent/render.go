package intent

import (
	"fmt"
	"strings"

	"reactsql/internal/catalog"
)

// renderSnapshot builds the compact per-database rendering fed to the
// LLM (spec.md §4.C step 1): table name, top columns, FK outgoing
// targets. Capped at a handful of columns per table so the prompt
// stays small — the full schema fragment is assembled later, only for
// the sub-plans the intent analyzer actually selects (§4.D.1).
func renderSnapshot(snapshot *catalog.SchemaSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database %s (id=%s, dialect=%s):\n", snapshot.DisplayName, snapshot.DBID, snapshot.Dialect)
	for _, table := range snapshot.Tables {
		cols := columnNames(table.Columns, 8)
		fmt.Fprintf(&b, "  - %s (%s)", table.QualifiedName, strings.Join(cols, ", "))
		if refs := foreignKeyTargets(table.ForeignKeys); len(refs) > 0 {
			fmt.Fprintf(&b, " -> %s", strings.Join(refs, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func columnNames(columns []catalog.ColumnSchema, limit int) []string {
	n := len(columns)
	if n > limit {
		n = limit
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, columns[i].Name)
	}
	return out
}

func foreignKeyTargets(fks []catalog.ForeignKey) []string {
	seen := make(map[string]bool, len(fks))
	var out []string
	for _, fk := range fks {
		if !seen[fk.ReferencedTable] {
			seen[fk.ReferencedTable] = true
			out = append(out, fk.ReferencedTable)
		}
	}
	return out
}
