package sqlgen

import (
	"regexp"
	"strings"
)

// tableRef is one FROM/JOIN table reference.
type tableRef struct {
	Table string
	Alias string
}

// joinRef is one JOIN, including its kind ("INNER", "LEFT", ...) and ON
// condition text.
type joinRef struct {
	Kind  string
	Table string
	Alias string
	On    string
}

var joinSplitPattern = regexp.MustCompile(`(?i)\b((?:INNER|LEFT|RIGHT|FULL|CROSS)?\s*JOIN)\b`)

// parseFromClause splits a FROM-clause body into its base table and an
// ordered list of JOINs, using top-level JOIN-keyword boundaries only.
func parseFromClause(from string) (tableRef, []joinRef) {
	segments, kinds := splitOnJoinKeyword(from)
	if len(segments) == 0 {
		return tableRef{}, nil
	}

	base := parseTableRef(segments[0])
	var joins []joinRef
	for i := 1; i < len(segments); i++ {
		table, on := splitOnClause(segments[i])
		ref := parseTableRef(table)
		joins = append(joins, joinRef{
			Kind:  strings.ToUpper(strings.TrimSpace(kinds[i-1])),
			Table: ref.Table,
			Alias: ref.Alias,
			On:    on,
		})
	}
	return base, joins
}

// splitOnJoinKeyword splits body on top-level JOIN keywords, returning
// the text segments and the matched join-kind text between them.
func splitOnJoinKeyword(body string) (segments []string, kinds []string) {
	depth := 0
	var inQuote byte
	last := 0
	n := len(body)
	upper := strings.ToUpper(body)

	i := 0
	for i < n {
		ch := body[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			}
			i++
			continue
		case ch == '\'' || ch == '"':
			inQuote = ch
			i++
			continue
		case ch == '(':
			depth++
			i++
			continue
		case ch == ')':
			depth--
			i++
			continue
		}
		if depth == 0 {
			if loc := matchJoinAt(upper, i); loc > 0 {
				segments = append(segments, body[last:i])
				// Find end of the JOIN keyword phrase.
				end := i + loc
				kinds = append(kinds, body[i:end])
				last = end
				i = end
				continue
			}
		}
		i++
	}
	segments = append(segments, body[last:])
	return segments, kinds
}

// matchJoinAt reports the length of a JOIN keyword phrase starting at
// position i in upper (already-uppercased text), or 0 if none matches.
func matchJoinAt(upper string, i int) int {
	candidates := []string{"INNER JOIN", "LEFT JOIN", "RIGHT JOIN", "FULL JOIN", "CROSS JOIN", "JOIN"}
	for _, c := range candidates {
		end := i + len(c)
		if end <= len(upper) && upper[i:end] == c && wordBoundaryAt(upper, i, end) {
			return len(c)
		}
	}
	return 0
}

// splitOnClause splits "table alias ON cond" into ("table alias", "cond").
func splitOnClause(segment string) (tablePart, onPart string) {
	idx := findTopLevelKeyword(segment, "ON", 0)
	if idx < 0 {
		return strings.TrimSpace(segment), ""
	}
	return strings.TrimSpace(segment[:idx]), strings.TrimSpace(segment[idx+2:])
}

// parseTableRef parses "name", "name AS alias", or "name alias".
func parseTableRef(s string) tableRef {
	s = strings.TrimSpace(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return tableRef{}
	}
	if len(fields) == 1 {
		return tableRef{Table: fields[0]}
	}
	if strings.EqualFold(fields[1], "AS") && len(fields) >= 3 {
		return tableRef{Table: fields[0], Alias: fields[2]}
	}
	return tableRef{Table: fields[0], Alias: fields[1]}
}
