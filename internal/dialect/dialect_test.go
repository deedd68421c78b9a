package dialect

import (
	"strings"
	"testing"
)

func TestGenericSyntaxCheckAcceptsSelectAndWith(t *testing.T) {
	cases := []string{
		"SELECT * FROM orders",
		"  with cte as (select 1) select * from cte",
	}
	for _, sql := range cases {
		ok, msg := genericSyntaxCheck(sql)
		if !ok {
			t.Errorf("expected %q to pass, got error %q", sql, msg)
		}
	}
}

func TestGenericSyntaxCheckRejectsForbiddenVerbs(t *testing.T) {
	cases := []string{
		"DROP TABLE x",
		"SELECT * FROM x; DELETE FROM x",
		"select * from x where 1=1; exec sp_helptext 'x'",
	}
	for _, sql := range cases {
		ok, msg := genericSyntaxCheck(sql)
		if ok {
			t.Errorf("expected %q to be rejected", sql)
		}
		if msg == "" {
			t.Errorf("expected error message for %q", sql)
		}
	}
}

// A commented-out verb must not itself trigger the forbidden-verb
// check (DROP here is just text inside a comment), but the query is
// still rejected because "--" is a forbidden fragment in its own right
// (spec.md §6 lists "--" among the rejected fragments with no "outside
// comments" carve-out — that carve-out applies only to forbidden verbs).
func TestGenericSyntaxCheckRejectsCommentMarkerNotCommentedVerb(t *testing.T) {
	sql := "SELECT * FROM orders -- DROP is just a word here in a comment\n"
	ok, msg := genericSyntaxCheck(sql)
	if ok {
		t.Fatalf("expected %q to be rejected for containing a comment marker", sql)
	}
	if strings.Contains(msg, "DROP") {
		t.Errorf("expected rejection to cite the comment fragment, not the commented-out verb, got %q", msg)
	}
}

// A verb hidden inside a genuine comment must still not trigger the
// forbidden-verb check, independent of the fragment check above.
func TestGenericSyntaxCheckIgnoresVerbsInCommentsForVerbCheck(t *testing.T) {
	sql := "SELECT * FROM orders /* DROP is just a word here */"
	_, msg := genericSyntaxCheck(sql)
	if strings.Contains(msg, "dangerous keyword: DROP") {
		t.Errorf("expected commented-out DROP not to trigger the verb check, got %q", msg)
	}
}

func TestGenericSyntaxCheckRejectsUnbalancedParens(t *testing.T) {
	ok, _ := genericSyntaxCheck("SELECT * FROM x WHERE (a = 1")
	if ok {
		t.Error("expected unbalanced parens to be rejected")
	}
}

func TestGenericFormatSQLStripsFences(t *testing.T) {
	got := genericFormatSQL("```sql\nSELECT   1\n  FROM x\n```")
	want := "SELECT 1 FROM x"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuotingPerDialect(t *testing.T) {
	cases := []struct {
		name Name
		want string
	}{
		{MySql, "`col`"},
		{Postgres, `"col"`},
		{SqlServer, "[col]"},
		{Sqlite, "col"},
	}
	for _, c := range cases {
		a := MustNew(c.name)
		if got := a.Quote("col"); got != c.want {
			t.Errorf("%s.Quote: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestLimitClausePerDialect(t *testing.T) {
	body := "SELECT id FROM t"
	if got := MustNew(MySql).LimitClause(5, body); got != "SELECT id FROM t LIMIT 5" {
		t.Errorf("mysql: got %q", got)
	}
	if got := MustNew(SqlServer).LimitClause(5, body); got != "SELECT TOP (5) id FROM t" {
		t.Errorf("sqlserver: got %q", got)
	}
}

// spec.md §8 scenario S1's own example already ends in a LIMIT clause;
// LimitClause must not append a second one, which all three engines
// reject as a syntax error.
func TestLimitClauseIdempotentForLimitDialects(t *testing.T) {
	body := "SELECT id, total FROM `orders` ORDER BY total DESC LIMIT 3"
	for _, name := range []Name{MySql, Postgres, Sqlite} {
		got := MustNew(name).LimitClause(100, body)
		if strings.Count(strings.ToUpper(got), "LIMIT") != 1 {
			t.Errorf("%s: expected exactly one LIMIT clause, got %q", name, got)
		}
		if !strings.HasSuffix(got, "LIMIT 3") {
			t.Errorf("%s: expected the tighter existing bound to win, got %q", name, got)
		}
	}
}

// The tighter of the two bounds wins when the requested cap is smaller
// than the SQL's own existing LIMIT.
func TestLimitClauseTightensToRequestedCap(t *testing.T) {
	body := "SELECT id FROM t LIMIT 1000"
	got := MustNew(MySql).LimitClause(10, body)
	if got != "SELECT id FROM t LIMIT 10" {
		t.Errorf("got %q", got)
	}
}

func TestLimitClauseIdempotentForSqlServer(t *testing.T) {
	body := "SELECT TOP (3) id FROM t"
	got := MustNew(SqlServer).LimitClause(100, body)
	if strings.Count(strings.ToUpper(got), "TOP") != 1 {
		t.Errorf("expected exactly one TOP clause, got %q", got)
	}
	if !strings.Contains(got, "TOP (3)") {
		t.Errorf("expected the tighter existing bound to win, got %q", got)
	}

	tighter := MustNew(SqlServer).LimitClause(2, body)
	if !strings.Contains(tighter, "TOP (2)") {
		t.Errorf("expected the requested cap to win when tighter, got %q", tighter)
	}
}

func TestResolveSqliteFilePathRejectsTraversal(t *testing.T) {
	cases := []string{"../secrets.db", "a//b.db", `a\\b.db`}
	for _, p := range cases {
		if _, err := ResolveSqliteFilePath(p); err == nil {
			t.Errorf("expected %q to be rejected", p)
		}
	}
}

func TestResolveSqliteFilePathAllowsMemory(t *testing.T) {
	got, err := ResolveSqliteFilePath(":memory:")
	if err != nil || got != ":memory:" {
		t.Errorf("got %q, %v", got, err)
	}
}
