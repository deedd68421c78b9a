package intent

import "reactsql/internal/catalog"

// buildForeignKeyGraph builds an undirected adjacency map over a
// snapshot's tables from their foreign keys, generalized from
// internal/context/join_analyzer.go's buildForeignKeyGraph (there used
// for shortest-path JOIN synthesis; here used for reachability
// closure).
func buildForeignKeyGraph(snapshot *catalog.SchemaSnapshot) map[string][]string {
	graph := make(map[string][]string, len(snapshot.Tables))
	for i := range snapshot.Tables {
		table := &snapshot.Tables[i]
		if _, ok := graph[table.QualifiedName]; !ok {
			graph[table.QualifiedName] = nil
		}
		for _, fk := range table.ForeignKeys {
			if ref, ok := snapshot.TableByName(fk.ReferencedTable); ok {
				graph[table.QualifiedName] = append(graph[table.QualifiedName], ref.QualifiedName)
				graph[ref.QualifiedName] = append(graph[ref.QualifiedName], table.QualifiedName)
			}
		}
	}
	return graph
}

// closeOverForeignKeys expands a seed set of qualified table names by
// breadth-first traversal along foreign keys within snapshot, so that
// every table reachable from a required table is also required
// (spec.md §4.C step 4, "joinability closure").
func closeOverForeignKeys(snapshot *catalog.SchemaSnapshot, seed []string) []string {
	graph := buildForeignKeyGraph(snapshot)

	visited := make(map[string]bool, len(seed))
	queue := make([]string, 0, len(seed))
	for _, name := range seed {
		if !visited[name] {
			visited[name] = true
			queue = append(queue, name)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range graph[current] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	out := make([]string, 0, len(visited))
	for _, table := range snapshot.Tables {
		if visited[table.QualifiedName] {
			out = append(out, table.QualifiedName)
		}
	}
	return out
}
