package intent

import (
	"strings"

	"reactsql/internal/catalog"
)

// buildPrompt assembles the strict-JSON intent-analysis prompt
// (spec.md §4.C step 2).
func buildPrompt(question string, snapshots []*catalog.SchemaSnapshot) string {
	var b strings.Builder
	b.WriteString("You are a database routing planner. Given the question and the databases below, ")
	b.WriteString("decide which databases and tables are relevant.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nDatabases:\n")
	for _, snapshot := range snapshots {
		b.WriteString(renderSnapshot(snapshot))
	}
	b.WriteString("\nRespond with strict JSON only, no prose, no markdown fences, matching exactly:\n")
	b.WriteString(`{"understanding":"...","confidence":0.0,"requiresCrossDatabaseJoin":false,"reasoning":"...",` +
		`"databases":[{"databaseId":"...","databaseName":"...","requiredTables":["..."],"purpose":"...","priority":1}]}`)
	b.WriteString("\n")
	return b.String()
}

