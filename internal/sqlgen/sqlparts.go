package sqlgen

import "strings"

// clauses is a shallow, heuristic decomposition of a single SELECT
// statement into its major clauses. It is not a parser: clause bodies
// are the raw substrings between top-level keyword boundaries, good
// enough for the pattern-directed rewrites the repair cascade performs
// (spec.md §9 — "accept that complete parsing is out of scope").
type clauses struct {
	Select  string
	From    string
	Where   string
	GroupBy string
	Having  string
	OrderBy string
	Limit   string
}

var topLevelKeywords = []string{"SELECT", "FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT"}

// findTopLevelKeyword returns the byte offset of kw at paren-depth 0
// and outside quotes, starting the search at from, or -1.
func findTopLevelKeyword(sql string, kw string, from int) int {
	upper := strings.ToUpper(sql)
	depth := 0
	var inQuote byte
	n := len(sql)
	kwLen := len(kw)

	for i := from; i < n; i++ {
		ch := sql[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			}
			continue
		case ch == '\'' || ch == '"':
			inQuote = ch
			continue
		case ch == '(':
			depth++
			continue
		case ch == ')':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if i+kwLen > n {
			continue
		}
		if upper[i:i+kwLen] != kw {
			continue
		}
		if !wordBoundaryAt(sql, i, i+kwLen) {
			continue
		}
		return i
	}
	return -1
}

func wordBoundaryAt(s string, start, end int) bool {
	if start > 0 && identRune(s[start-1]) {
		return false
	}
	if end < len(s) && identRune(s[end]) {
		return false
	}
	return true
}

// splitClauses decomposes sql into its top-level clauses.
func splitClauses(sql string) clauses {
	positions := map[string]int{}
	for _, kw := range topLevelKeywords {
		positions[kw] = findTopLevelKeyword(sql, kw, 0)
	}

	// Order keywords by their found position to compute each clause's end.
	type kp struct {
		kw  string
		pos int
	}
	var found []kp
	for _, kw := range topLevelKeywords {
		if positions[kw] >= 0 {
			found = append(found, kp{kw, positions[kw]})
		}
	}
	for i := 0; i < len(found); i++ {
		for j := i + 1; j < len(found); j++ {
			if found[j].pos < found[i].pos {
				found[i], found[j] = found[j], found[i]
			}
		}
	}

	var c clauses
	for i, f := range found {
		end := len(sql)
		if i+1 < len(found) {
			end = found[i+1].pos
		}
		body := strings.TrimSpace(sql[f.pos+len(f.kw) : end])
		switch f.kw {
		case "SELECT":
			c.Select = body
		case "FROM":
			c.From = body
		case "WHERE":
			c.Where = body
		case "GROUP BY":
			c.GroupBy = body
		case "HAVING":
			c.Having = body
		case "ORDER BY":
			c.OrderBy = body
		case "LIMIT":
			c.Limit = body
		}
	}
	return c
}

// selectItems splits a SELECT list into its top-level comma-separated
// expressions.
func selectItems(selectList string) []string {
	var out []string
	for _, item := range splitTopLevel(selectList, ',') {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// aliasOf extracts the "AS alias" or trailing bare-alias name from a
// SELECT-list expression, or "" if none is present.
func aliasOf(expr string) string {
	upper := strings.ToUpper(expr)
	if idx := strings.LastIndex(upper, " AS "); idx >= 0 {
		return strings.TrimSpace(expr[idx+4:])
	}
	fields := strings.Fields(expr)
	if len(fields) >= 2 && !strings.ContainsAny(fields[len(fields)-1], "()+-*/") {
		last := fields[len(fields)-1]
		if !strings.Contains(last, ".") {
			return last
		}
	}
	return ""
}
