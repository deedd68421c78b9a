package docstore

import (
	"context"
	"fmt"
	"strings"

	"reactsql/internal/catalog"
)

// SchemaSink adapts a Store into a catalog.DocumentSink, rendering a
// SchemaSnapshot into a short text chunk per spec.md §6's "Document
// repository collaborator" onboarding hook.
type SchemaSink struct {
	Store Store
}

// IndexSchemaSnapshot renders snapshot to text and files it keyed
// {documentType:"Schema", databaseId:snapshot.DBID}. It never returns
// an error: indexing failures must not fail the catalog's analysis
// call (SPEC_FULL §3.B).
func (s SchemaSink) IndexSchemaSnapshot(ctx context.Context, snapshot *catalog.SchemaSnapshot) {
	if s.Store == nil || snapshot == nil {
		return
	}
	s.Store.Put(ctx, Document{
		Type:       "Schema",
		DatabaseID: snapshot.DBID,
		Text:       renderSchemaSnapshot(snapshot),
	})
}

func renderSchemaSnapshot(snapshot *catalog.SchemaSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database %s (%s), %d tables, %d total rows\n",
		snapshot.DisplayName, snapshot.Dialect, len(snapshot.Tables), snapshot.TotalRowCount)
	for _, table := range snapshot.Tables {
		fmt.Fprintf(&b, "- %s (%d columns, ~%d rows)\n", table.QualifiedName, len(table.Columns), table.ApproxRowCount)
	}
	return b.String()
}
