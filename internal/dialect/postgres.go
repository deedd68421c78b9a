package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

type postgresAdapter struct{}

func (a *postgresAdapter) Name() Name { return Postgres }

func (a *postgresAdapter) Quote(identifier string) string {
	if identifier == "" {
		return identifier
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func (a *postgresAdapter) LimitClause(topN int, body string) string {
	return applyLimitClause(topN, body)
}

func (a *postgresAdapter) SyntaxCheck(sql string) (bool, string) {
	return genericSyntaxCheck(sql)
}

func (a *postgresAdapter) FormatSQL(sql string) string {
	return genericFormatSQL(sql)
}

func (a *postgresAdapter) Open(ctx context.Context, cs ConnectionString) (*sql.DB, error) {
	db, err := sql.Open("postgres", string(cs))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	return db, nil
}

func (a *postgresAdapter) FeatureFlags() FeatureFlags {
	return FeatureFlags{
		SupportsOffset:           true,
		SupportsReturning:        true,
		FoldsUnquotedIdentifiers: true,
		UnquotedFold:             "lower",
	}
}
