// Package dialect implements the per-engine capability the rest of the
// planner depends on: identifier quoting, row-limit syntax, a cheap
// structural syntax check, and SQL whitespace/fence normalisation.
//
// It intentionally does not parse SQL. A dialect is a small, pure,
// swappable strategy — new engines are added by registering a new
// Adapter, never by growing a branch in the planner.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
)

// Name identifies one of the four supported database engines.
type Name string

const (
	Sqlite    Name = "Sqlite"
	SqlServer Name = "SqlServer"
	MySql     Name = "MySql"
	Postgres  Name = "Postgres"
)

// FeatureFlags records engine capabilities. Each adapter reports them
// through Adapter.FeatureFlags; no other package reads them.
type FeatureFlags struct {
	// SupportsOffset reports whether LIMIT/OFFSET (as opposed to
	// TOP-only pagination) is available.
	SupportsOffset bool
	// SupportsReturning reports whether the engine can RETURNING a
	// result set from a DML statement (irrelevant here since only
	// SELECT/WITH is admissible, but recorded for completeness).
	SupportsReturning bool
	// FoldsUnquotedIdentifiers reports whether unquoted identifiers are
	// case-folded by the engine (and to which case).
	FoldsUnquotedIdentifiers bool
	// UnquotedFold is the case unquoted identifiers fold to, valid only
	// when FoldsUnquotedIdentifiers is true: "upper" or "lower".
	UnquotedFold string
}

// ConnectionString is an already-resolved, dialect-specific DSN.
// MySQLDSN, PostgresDSN and SqlServerDSN build one from its parts.
type ConnectionString string

// Adapter is the per-engine capability described in SPEC_FULL §3.A.
type Adapter interface {
	// Name returns the dialect identifier.
	Name() Name

	// Quote quotes a single identifier according to engine rules.
	Quote(identifier string) string

	// LimitClause rewrites body to return at most topN rows, using
	// whatever row-limiting syntax the engine supports.
	LimitClause(topN int, body string) string

	// SyntaxCheck performs the cheap structural check described in
	// SPEC_FULL §3.A / spec.md §4.A: balanced parentheses, a leading
	// SELECT/WITH keyword, and no forbidden verbs.
	SyntaxCheck(sql string) (ok bool, errMsg string)

	// FormatSQL normalises whitespace and strips fenced-code artefacts.
	FormatSQL(sql string) string

	// Open opens a *sql.DB for the given connection string using the
	// dialect's driver.
	Open(ctx context.Context, cs ConnectionString) (*sql.DB, error)

	// FeatureFlags reports engine capabilities.
	FeatureFlags() FeatureFlags
}

// UnsupportedDialectError mirrors the teacher's UnsupportedDatabaseError.
type UnsupportedDialectError struct {
	Name Name
}

func (e *UnsupportedDialectError) Error() string {
	return "unsupported dialect: " + string(e.Name)
}

// New returns the Adapter for name, or an *UnsupportedDialectError.
func New(name Name) (Adapter, error) {
	switch name {
	case Sqlite:
		return &sqliteAdapter{}, nil
	case MySql:
		return &mysqlAdapter{}, nil
	case Postgres:
		return &postgresAdapter{}, nil
	case SqlServer:
		return &sqlServerAdapter{}, nil
	default:
		return nil, &UnsupportedDialectError{Name: name}
	}
}

// MustNew is New but panics on an unsupported dialect; used only at
// startup configuration time, never on the request path.
func MustNew(name Name) Adapter {
	a, err := New(name)
	if err != nil {
		panic(fmt.Sprintf("dialect: %v", err))
	}
	return a
}
