package sqlgen

import (
	"regexp"
	"strconv"
	"strings"

	"reactsql/internal/catalog"
)

var (
	databaseHeaderPattern = regexp.MustCompile(`(?i)^#*\s*DATABASE\s+(\d+)\s*:`)
	fencePattern          = regexp.MustCompile("^```(sql)?\\s*$")
	prosePrefixes         = []string{"Explanation:", "Note:", "Explanation", "Note"}
)

// ExtractSQLPerDatabase parses the model's response line-wise per
// spec.md §4.D.2's deterministic state machine, returning one SQL
// string (possibly empty) per requests index, in order.
func ExtractSQLPerDatabase(response string, n int) []string {
	results := make([]string, n)

	var currentIdx = -1
	inSQL := false
	var buf strings.Builder

	flush := func() {
		if currentIdx >= 0 && currentIdx < n {
			text := strings.TrimSpace(buf.String())
			if text != "" {
				results[currentIdx] = text
			}
		}
		buf.Reset()
		inSQL = false
	}

	lines := strings.Split(response, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if m := databaseHeaderPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			k, err := strconv.Atoi(m[1])
			if err == nil {
				currentIdx = k - 1
			}
			continue
		}

		if fencePattern.MatchString(trimmed) {
			continue
		}
		if trimmed == "```" {
			continue
		}

		if strings.EqualFold(trimmed, "CONFIRMED") {
			inSQL = true
			continue
		}

		if isProseLine(trimmed) {
			if inSQL {
				flush()
			}
			continue
		}

		if !inSQL && startsWithSelectOrWith(trimmed) {
			inSQL = true
		}

		if inSQL {
			if trimmed == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(trimmed)
		}
	}
	flush()

	if allEmpty(results) {
		return fallbackSplitOnSemicolon(response, n)
	}
	return results
}

func isProseLine(line string) bool {
	for _, p := range prosePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func startsWithSelectOrWith(line string) bool {
	upper := strings.ToUpper(strings.TrimSpace(line))
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}

func allEmpty(results []string) bool {
	for _, r := range results {
		if r != "" {
			return false
		}
	}
	return true
}

// fallbackSplitOnSemicolon implements spec.md §4.D.2's fallback: split
// on ';', treat each SELECT/WITH block as a candidate (a part that opens
// with prose contributes the text from its first SELECT onwards), and
// assign candidates to sub-plans in declared order. Candidates beyond
// the n-th are dropped; no table-name scoring is applied.
func fallbackSplitOnSemicolon(response string, n int) []string {
	selectWord := regexp.MustCompile(`(?i)\bSELECT\b`)
	var candidates []string
	for _, part := range strings.Split(response, ";") {
		part = strings.TrimSpace(stripFences(part))
		if startsWithSelectOrWith(part) {
			candidates = append(candidates, part)
		} else if loc := selectWord.FindStringIndex(part); loc != nil {
			candidates = append(candidates, part[loc[0]:])
		}
	}

	out := make([]string, n)
	for i := 0; i < n && i < len(candidates); i++ {
		out[i] = candidates[i]
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ScoreCandidateAgainstSnapshot counts how many of snapshot's table
// names appear (case-insensitive, whole-word) in candidate, the
// table-name overlap score of spec.md §4.D.2. The semicolon-split
// fallback in this package does not call it.
func ScoreCandidateAgainstSnapshot(candidate string, snapshot *catalog.SchemaSnapshot) int {
	score := 0
	for _, table := range snapshot.Tables {
		name := shortTableName(table.QualifiedName)
		if containsWholeWordFold(candidate, name) {
			score++
		}
	}
	return score
}

func shortTableName(qualified string) string {
	if idx := strings.LastIndexByte(qualified, '.'); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}
