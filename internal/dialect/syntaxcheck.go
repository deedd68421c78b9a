package dialect

import (
	"regexp"
	"strings"
)

// forbiddenVerbs are rejected prior to execution (spec.md §6), matched
// whole-word, case-insensitive, outside of comments.
var forbiddenVerbs = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "EXEC", "EXECUTE", "SP_", "XP_",
}

// forbiddenFragments are rejected outright as potentially injected.
var forbiddenFragments = []string{
	"UNION", ";--", ";/*", "--", "/*",
}

var wordBoundaryCache = map[string]*regexp.Regexp{}

func wordBoundaryRegexp(verb string) *regexp.Regexp {
	if re, ok := wordBoundaryCache[verb]; ok {
		return re
	}
	// SP_/XP_ are prefixes (sp_helptext, xp_cmdshell), not whole words.
	var pattern string
	if strings.HasSuffix(verb, "_") {
		pattern = `(?i)\b` + regexp.QuoteMeta(verb)
	} else {
		pattern = `(?i)\b` + regexp.QuoteMeta(verb) + `\b`
	}
	re := regexp.MustCompile(pattern)
	wordBoundaryCache[verb] = re
	return re
}

// stripSQLComments removes -- line comments and /* */ block comments so
// forbidden-verb scanning does not false-positive on commented-out SQL
// or false-negative on verbs hidden by comment splicing.
func stripSQLComments(sql string) string {
	var sb strings.Builder
	inLineComment := false
	inBlockComment := false
	inString := false
	var stringQuote byte

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if inLineComment {
			if c == '\n' {
				inLineComment = false
				sb.WriteByte(c)
			}
			continue
		}
		if inBlockComment {
			if c == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue
		}
		if inString {
			sb.WriteByte(c)
			if c == stringQuote {
				inString = false
			}
			continue
		}

		if c == '\'' || c == '"' {
			inString = true
			stringQuote = c
			sb.WriteByte(c)
			continue
		}
		if c == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			inLineComment = true
			continue
		}
		if c == '/' && i+1 < len(sql) && sql[i+1] == '*' {
			inBlockComment = true
			i++
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// admissibleLeadKeyword reports whether the stripped leading keyword of
// sql is SELECT or WITH, per spec.md §3/§6.
func admissibleLeadKeyword(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}

// placeholderFragments are leftover model scaffolding (spec.md §4.D.3).
// genericSyntaxCheck does not consult this list; the placeholder check
// is made by the SQL Generator's final validator (internal/sqlgen),
// which keeps its own copy of it.
var placeholderFragments = []string{
	"ABOVE QUERY", "YOUR QUERY", "SUBQUERY HERE", "PLACEHOLDER", "INSERT QUERY",
}

// checkBalancedParens reports whether parentheses are balanced.
func checkBalancedParens(sql string) bool {
	depth := 0
	inString := false
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if inString {
			if c == quote {
				inString = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = true
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// genericSyntaxCheck implements the structural check shared by all four
// dialects (spec.md §4.A): balanced parens, no forbidden verbs outside of
// comments, SELECT/WITH lead keyword, and no injection fragments anywhere
// in the raw text. Forbidden verbs are checked before the lead keyword so
// that a statement such as "DROP TABLE x" is reported by its verb.
func genericSyntaxCheck(sql string) (bool, string) {
	if strings.TrimSpace(sql) == "" {
		return false, "empty query"
	}
	if !checkBalancedParens(sql) {
		return false, "unbalanced parentheses"
	}

	stripped := stripSQLComments(sql)
	for _, verb := range forbiddenVerbs {
		if wordBoundaryRegexp(verb).MatchString(stripped) {
			return false, "Query contains dangerous keyword: " + verb
		}
	}
	if !admissibleLeadKeyword(sql) {
		return false, "statement must begin with SELECT or WITH"
	}
	// Forbidden fragments are checked against the raw SQL, not the
	// comment-stripped text: four of the five fragments (";--", ";/*",
	// "--", "/*") are themselves comment-opening sequences, so stripping
	// comments first would remove the very thing being searched for and
	// turn this check into a no-op for injected comments.
	upperRaw := strings.ToUpper(sql)
	for _, frag := range forbiddenFragments {
		if strings.Contains(upperRaw, frag) {
			return false, "Query contains forbidden fragment: " + frag
		}
	}
	return true, ""
}

// genericFormatSQL normalises whitespace and strips fenced-code
// artefacts, the shared part of stage 1 ("Dialect normalise") in the
// repair cascade.
func genericFormatSQL(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```SQL")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// Collapse runs of whitespace, but keep newlines as single spaces —
	// the cascade's stage implementations work line-agnostically.
	var sb strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' {
			r = ' '
		}
		if r == ' ' {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
		} else {
			lastWasSpace = false
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
