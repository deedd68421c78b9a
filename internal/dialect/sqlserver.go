package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

type sqlServerAdapter struct{}

func (a *sqlServerAdapter) Name() Name { return SqlServer }

func (a *sqlServerAdapter) Quote(identifier string) string {
	if identifier == "" {
		return identifier
	}
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

// topPattern matches a leading SELECT, optionally followed by DISTINCT,
// so TOP (n) can be inserted right after it.
var topPattern = regexp.MustCompile(`(?i)^(\s*SELECT\s+(?:DISTINCT\s+)?)`)

// topWithExistingPattern matches a leading SELECT [DISTINCT] that
// already carries a TOP (n) (or bare TOP n) clause, capturing the
// existing bound so LimitClause can tighten rather than duplicate it.
var topWithExistingPattern = regexp.MustCompile(`(?i)^(\s*SELECT\s+(?:DISTINCT\s+)?)TOP\s*\(?\s*(\d+)\s*\)?\s*`)

// LimitClause inserts TOP (n) right after a leading SELECT [DISTINCT].
// If body already has a TOP clause (the cascade or the model itself may
// have produced one), the tighter of the two bounds replaces it rather
// than a second TOP being inserted, which SQL Server rejects.
func (a *sqlServerAdapter) LimitClause(topN int, body string) string {
	trimmed := strings.TrimRight(body, "; \t\n")
	if m := topWithExistingPattern.FindStringSubmatch(trimmed); m != nil {
		n := topN
		if existing, err := strconv.Atoi(m[2]); err == nil && existing < n {
			n = existing
		}
		return topWithExistingPattern.ReplaceAllString(trimmed, fmt.Sprintf("${1}TOP (%d) ", n))
	}
	if topPattern.MatchString(trimmed) {
		return topPattern.ReplaceAllString(trimmed, fmt.Sprintf("${1}TOP (%d) ", topN))
	}
	return trimmed
}

func (a *sqlServerAdapter) SyntaxCheck(sql string) (bool, string) {
	return genericSyntaxCheck(sql)
}

func (a *sqlServerAdapter) FormatSQL(sql string) string {
	return genericFormatSQL(sql)
}

func (a *sqlServerAdapter) Open(ctx context.Context, cs ConnectionString) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", string(cs))
	if err != nil {
		return nil, fmt.Errorf("sqlserver: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlserver: failed to ping database: %w", err)
	}
	return db, nil
}

func (a *sqlServerAdapter) FeatureFlags() FeatureFlags {
	return FeatureFlags{
		SupportsOffset:           true,
		SupportsReturning:        false,
		FoldsUnquotedIdentifiers: true,
		UnquotedFold:             "upper",
	}
}

// IsDatabaseDoesNotExistError reports whether err is SQL Server error
// 4060 ("Cannot open database ... requested by the login"), the special
// case from spec.md §4.F / §7 that downgrades a ConnectionError into a
// successful empty result.
func IsDatabaseDoesNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "4060") || strings.Contains(strings.ToLower(msg), "cannot open database")
}
