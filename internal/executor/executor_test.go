package executor

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
)

func seedTestDB(t *testing.T, dsn string) {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	// Kept open until the test ends: a shared-cache in-memory database
	// is discarded as soon as its last connection closes.
	t.Cleanup(func() { db.Close() })
	stmts := []string{
		"CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, ssn TEXT)",
		"INSERT INTO people (id, name, ssn) VALUES (1, 'Ada', '111-11-1111')",
		"INSERT INTO people (id, name, ssn) VALUES (2, 'Grace', NULL)",
		"INSERT INTO people (id, name, ssn) VALUES (3, 'Alan', '333-33-3333')",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func testDescriptor(dsn string) catalog.DatabaseDescriptor {
	return catalog.DatabaseDescriptor{
		ID:               "people_db",
		Dialect:          dialect.Sqlite,
		ConnectionString: dialect.ConnectionString(dsn),
		RowCap:           100,
	}
}

func TestExecuteReturnsTabDelimitedBodyWithTrailer(t *testing.T) {
	dsn := "file:executetest1?mode=memory&cache=shared"
	seedTestDB(t, dsn)

	result := Execute(context.Background(), Request{
		Descriptor:   testDescriptor(dsn),
		Adapter:      dialect.MustNew(dialect.Sqlite),
		SQL:          "SELECT id, name FROM people ORDER BY id",
		RequestedCap: 100,
	})

	if !result.OK {
		t.Fatalf("expected ok, got error %q", result.Error)
	}
	if !strings.HasPrefix(result.Body, "id\tname\n") {
		t.Errorf("unexpected header: %q", result.Body)
	}
	if !strings.Contains(result.Body, "Rows extracted: 3\n") {
		t.Errorf("expected trailer for 3 rows, got %q", result.Body)
	}
}

func TestExecuteEnforcesEffectiveRowCap(t *testing.T) {
	dsn := "file:executetest2?mode=memory&cache=shared"
	seedTestDB(t, dsn)

	desc := testDescriptor(dsn)
	desc.RowCap = 2

	result := Execute(context.Background(), Request{
		Descriptor:   desc,
		Adapter:      dialect.MustNew(dialect.Sqlite),
		SQL:          "SELECT id FROM people ORDER BY id",
		RequestedCap: 100,
	})

	if !result.OK {
		t.Fatalf("expected ok, got error %q", result.Error)
	}
	if !strings.Contains(result.Body, "Rows extracted: 2\n") {
		t.Errorf("expected row cap of 2 to be enforced, got %q", result.Body)
	}
}

// A SQL string that already ends in its own LIMIT (e.g. produced by the
// repair cascade or the model itself) must still execute successfully
// rather than getting a second LIMIT appended by the row-cap pass,
// which is a syntax error in SQLite (and MySQL/Postgres).
func TestExecuteDoesNotDoubleLimitAlreadyLimitedSQL(t *testing.T) {
	dsn := "file:executetest5?mode=memory&cache=shared"
	seedTestDB(t, dsn)

	desc := testDescriptor(dsn)
	desc.RowCap = 100

	result := Execute(context.Background(), Request{
		Descriptor:   desc,
		Adapter:      dialect.MustNew(dialect.Sqlite),
		SQL:          "SELECT id FROM people ORDER BY id LIMIT 2",
		RequestedCap: 100,
	})

	if !result.OK {
		t.Fatalf("expected ok, got error %q", result.Error)
	}
	if !strings.Contains(result.Body, "Rows extracted: 2\n") {
		t.Errorf("expected the SQL's own LIMIT 2 to be respected, got %q", result.Body)
	}
}

func TestExecuteMasksSensitiveColumns(t *testing.T) {
	dsn := "file:executetest3?mode=memory&cache=shared"
	seedTestDB(t, dsn)

	desc := testDescriptor(dsn)
	desc.SensitiveColumns = []string{"ssn"}

	result := Execute(context.Background(), Request{
		Descriptor:   desc,
		Adapter:      dialect.MustNew(dialect.Sqlite),
		SQL:          "SELECT id, ssn FROM people ORDER BY id",
		RequestedCap: 100,
	})

	if !result.OK {
		t.Fatalf("expected ok, got error %q", result.Error)
	}
	if !strings.Contains(result.Body, "[SENSITIVE_DATA]") {
		t.Errorf("expected masked ssn column, got %q", result.Body)
	}
	if strings.Contains(result.Body, "111-11-1111") {
		t.Errorf("raw sensitive value leaked into body: %q", result.Body)
	}
	if !strings.Contains(result.Body, "\tNULL\n") {
		t.Errorf("expected NULL literal for Grace's ssn, got %q", result.Body)
	}
}

func TestExecuteRejectsForbiddenKeyword(t *testing.T) {
	dsn := "file:executetest4?mode=memory&cache=shared"
	seedTestDB(t, dsn)

	result := Execute(context.Background(), Request{
		Descriptor:   testDescriptor(dsn),
		Adapter:      dialect.MustNew(dialect.Sqlite),
		SQL:          "DROP TABLE people",
		RequestedCap: 100,
	})

	if result.OK {
		t.Fatal("expected DROP to be rejected before execution")
	}
	if !strings.Contains(result.Error, "DROP") {
		t.Errorf("expected error to mention DROP, got %q", result.Error)
	}
}
