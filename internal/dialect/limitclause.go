package dialect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// trailingLimitPattern matches a LIMIT clause anchored to the end of a
// statement, so an already-limited query (the cascade or the model
// itself may have produced one, e.g. spec.md §8 scenario S1's own
// "... ORDER BY total DESC LIMIT 3") is detected instead of blindly
// appended to.
var trailingLimitPattern = regexp.MustCompile(`(?is)^(.*?)\s+LIMIT\s+(\d+)\s*$`)

// applyLimitClause rewrites body to return at most topN rows using a
// trailing "LIMIT n" clause, shared by the three dialects that use that
// syntax (MySql, Postgres, Sqlite). If body already ends in a LIMIT
// clause, the tighter of the two bounds replaces it rather than a
// second LIMIT being appended — appending would be a syntax error in
// all three engines.
func applyLimitClause(topN int, body string) string {
	trimmed := strings.TrimRight(body, "; \t\n")
	if m := trailingLimitPattern.FindStringSubmatch(trimmed); m != nil {
		if existing, err := strconv.Atoi(m[2]); err == nil {
			n := topN
			if existing < n {
				n = existing
			}
			return fmt.Sprintf("%s LIMIT %d", strings.TrimRight(m[1], " \t\n"), n)
		}
	}
	return fmt.Sprintf("%s LIMIT %d", trimmed, topN)
}
