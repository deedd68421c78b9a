package sqlgen

import "testing"

func TestSplitClausesSeparatesTopLevelSections(t *testing.T) {
	sql := "SELECT o.id, COUNT(*) AS n FROM orders o JOIN people p ON o.person_id = p.id " +
		"WHERE p.city = 'NYC' GROUP BY o.id HAVING COUNT(*) > 1 ORDER BY o.id LIMIT 10"
	c := splitClauses(sql)

	if c.Select != "o.id, COUNT(*) AS n" {
		t.Errorf("Select = %q", c.Select)
	}
	if c.From != "orders o JOIN people p ON o.person_id = p.id" {
		t.Errorf("From = %q", c.From)
	}
	if c.Where != "p.city = 'NYC'" {
		t.Errorf("Where = %q", c.Where)
	}
	if c.GroupBy != "o.id" {
		t.Errorf("GroupBy = %q", c.GroupBy)
	}
	if c.Having != "COUNT(*) > 1" {
		t.Errorf("Having = %q", c.Having)
	}
	if c.OrderBy != "o.id" {
		t.Errorf("OrderBy = %q", c.OrderBy)
	}
	if c.Limit != "10" {
		t.Errorf("Limit = %q", c.Limit)
	}
}

func TestFindTopLevelKeywordSkipsParenthesisedOccurrences(t *testing.T) {
	sql := "SELECT * FROM (SELECT 1 FROM inner_table) t WHERE 1=1"
	idx := findTopLevelKeyword(sql, "WHERE", 0)
	want := len("SELECT * FROM (SELECT 1 FROM inner_table) t ")
	if idx != want {
		t.Errorf("got %d, want %d", idx, want)
	}
}

func TestSelectItemsSplitsOnTopLevelCommas(t *testing.T) {
	items := selectItems("a, f(b, c) AS x, d")
	want := []string{"a", "f(b, c) AS x", "d"}
	if len(items) != len(want) {
		t.Fatalf("got %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d: got %q, want %q", i, items[i], want[i])
		}
	}
}

func TestAliasOfExtractsExplicitAndImplicitAliases(t *testing.T) {
	cases := map[string]string{
		"COUNT(*) AS n": "n",
		"o.name n":      "n",
		"o.name":        "",
	}
	for expr, want := range cases {
		if got := aliasOf(expr); got != want {
			t.Errorf("aliasOf(%q) = %q, want %q", expr, got, want)
		}
	}
}
