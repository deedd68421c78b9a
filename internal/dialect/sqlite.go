package dialect

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() Name { return Sqlite }

func (a *sqliteAdapter) Quote(identifier string) string {
	if identifier == "" {
		return identifier
	}
	return identifier
}

func (a *sqliteAdapter) LimitClause(topN int, body string) string {
	return applyLimitClause(topN, body)
}

func (a *sqliteAdapter) SyntaxCheck(sql string) (bool, string) {
	return genericSyntaxCheck(sql)
}

func (a *sqliteAdapter) FormatSQL(sql string) string {
	return genericFormatSQL(sql)
}

func (a *sqliteAdapter) Open(ctx context.Context, cs ConnectionString) (*sql.DB, error) {
	db, err := sql.Open("sqlite", string(cs))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}
	return db, nil
}

func (a *sqliteAdapter) FeatureFlags() FeatureFlags {
	return FeatureFlags{
		SupportsOffset:           true,
		SupportsReturning:        true,
		FoldsUnquotedIdentifiers: false,
	}
}
