package sqlgen

import (
	"fmt"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"reactsql/internal/catalog"
)

// indentFn is sprig's "indent" template helper, the same one
// langchaingo's prompt engine exposes to its own templates — reused
// directly here so the per-database schema fragment is indented under
// its DATABASE header the way a hand-written prompt template would be.
var indentFn = sprig.FuncMap()["indent"].(func(int, string) string)

// relevantSchemaFragment renders the required tables plus their
// immediate foreign-key neighbours (spec.md §4.D.1).
func relevantSchemaFragment(snapshot *catalog.SchemaSnapshot, requiredTables []string) string {
	include := make(map[string]bool, len(requiredTables)*2)
	for _, name := range requiredTables {
		include[name] = true
	}
	for _, name := range requiredTables {
		table, ok := snapshot.TableByName(name)
		if !ok {
			continue
		}
		for _, fk := range table.ForeignKeys {
			if ref, ok := snapshot.TableByName(fk.ReferencedTable); ok {
				include[ref.QualifiedName] = true
			}
		}
	}

	var b strings.Builder
	for _, table := range snapshot.Tables {
		if !include[table.QualifiedName] {
			continue
		}
		fmt.Fprintf(&b, "TABLE %s(", table.QualifiedName)
		cols := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			cols = append(cols, col.Name+" "+col.DataType)
		}
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString(")\n")
		for _, fk := range table.ForeignKeys {
			fmt.Fprintf(&b, "  FK %s.%s -> %s.%s\n", table.QualifiedName, fk.LocalColumn, fk.ReferencedTable, fk.ReferencedColumn)
		}
	}
	return b.String()
}

// BuildPrompt assembles the full generation prompt for question across
// every request in order, following the wire rules of spec.md §4.D.1
// and §6.
func BuildPrompt(question string, requests []GenerationRequest) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	for i, req := range requests {
		fmt.Fprintf(&b, "=== System: DATABASE %d: %s ===\n", i+1, req.SubPlan.DBID)
		fmt.Fprintf(&b, "Dialect: %s. Quote identifiers with %s. %s\n",
			req.Adapter.Name(), quoteExample(req.Adapter), "Use only SELECT or WITH.")
		b.WriteString(indentFn(2, relevantSchemaFragment(req.Snapshot, req.SubPlan.RequiredTables)))
		if len(req.Mappings) > 0 {
			var cols []string
			for _, m := range req.Mappings {
				cols = append(cols, m.Table+"."+m.Column)
			}
			fmt.Fprintf(&b, "MAPPING COLUMNS REQUIRED — MUST include in SELECT and in GROUP BY if aggregating: %s\n",
				strings.Join(cols, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("User: For each database above, answer with one fenced SQL block, preceded by a line\n")
	b.WriteString("`DATABASE k: <name>` and the literal word CONFIRMED, in this form:\n\n")
	for i, req := range requests {
		fmt.Fprintf(&b, "DATABASE %d: %s\nCONFIRMED\n```sql\n<your SQL here>\n```\n\n", i+1, req.SubPlan.DBID)
	}
	return b.String()
}

func quoteExample(a interface{ Quote(string) string }) string {
	return a.Quote("x")
}
