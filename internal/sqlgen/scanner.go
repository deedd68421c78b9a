package sqlgen

import "strings"

// splitTopLevel splits s on sep, but only at paren-depth zero and
// outside single/double-quoted string literals — the SELECT/FROM/JOIN
// clause-list generalization of internal/context/schema_parser.go's
// splitTableItems (there used only for CREATE TABLE column lists).
func splitTopLevel(s string, sep byte) []string {
	var items []string
	var current strings.Builder
	depth := 0
	var inQuote byte

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote != 0:
			current.WriteByte(ch)
			if ch == inQuote {
				inQuote = 0
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
			current.WriteByte(ch)
		case ch == '(':
			depth++
			current.WriteByte(ch)
		case ch == ')':
			depth--
			current.WriteByte(ch)
		case ch == sep && depth == 0:
			items = append(items, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		items = append(items, current.String())
	}
	return items
}

// identifierToken is one dotted identifier found in sql, e.g. "a.b" or
// "a.b.c", along with the half-open byte range it occupies.
type identifierToken struct {
	Text  string
	Start int
	End int
}

// identRune reports whether r may appear inside an unquoted SQL
// identifier segment.
func identRune(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// scanIdentifiers walks sql outside quoted literals (comments are not
// skipped) and returns every
// maximal run of dot-joined identifier segments (e.g. "db.schema.tbl",
// "alias.col"), used by the cross-db-reference and alias-repair stages.
func scanIdentifiers(sql string) []identifierToken {
	var tokens []identifierToken
	i := 0
	n := len(sql)

	for i < n {
		ch := sql[i]
		switch {
		case ch == '\'' || ch == '"':
			quote := ch
			i++
			for i < n && sql[i] != quote {
				i++
			}
			i++
		case identRune(ch) && !(ch >= '0' && ch <= '9'):
			start := i
			for i < n && (identRune(sql[i]) || sql[i] == '.') {
				i++
			}
			text := sql[start:i]
			// Trim a trailing '.' with nothing after it (shouldn't
			// normally happen since identRune excludes '.').
			text = strings.TrimSuffix(text, ".")
			if strings.Contains(text, ".") {
				tokens = append(tokens, identifierToken{Text: text, Start: start, End: start + len(text)})
			}
			i = start + len(text)
		default:
			i++
		}
	}
	return tokens
}
