package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

type mysqlAdapter struct{}

func (a *mysqlAdapter) Name() Name { return MySql }

func (a *mysqlAdapter) Quote(identifier string) string {
	if identifier == "" {
		return identifier
	}
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

func (a *mysqlAdapter) LimitClause(topN int, body string) string {
	return applyLimitClause(topN, body)
}

func (a *mysqlAdapter) SyntaxCheck(sql string) (bool, string) {
	return genericSyntaxCheck(sql)
}

func (a *mysqlAdapter) FormatSQL(sql string) string {
	return genericFormatSQL(sql)
}

func (a *mysqlAdapter) Open(ctx context.Context, cs ConnectionString) (*sql.DB, error) {
	db, err := sql.Open("mysql", string(cs))
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: failed to ping database: %w", err)
	}
	return db, nil
}

func (a *mysqlAdapter) FeatureFlags() FeatureFlags {
	return FeatureFlags{
		SupportsOffset:           true,
		SupportsReturning:        false,
		FoldsUnquotedIdentifiers: true,
		UnquotedFold:             "lower",
	}
}
