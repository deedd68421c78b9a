package sqlgen

import (
	"regexp"
	"strings"
)

// stageDialectNormalise is stage 1: whitespace/fence normalisation via
// the dialect adapter's FormatSQL.
func stageDialectNormalise(ctx StageContext, sql string) string {
	return ctx.Adapter.FormatSQL(sql)
}

var backtickIdentifierPattern = regexp.MustCompile("`([^`]*)`")
var bracketIdentifierPattern = regexp.MustCompile(`\[([^\]]*)\]`)

// stageDialectPostPass is stage 20: MySQL back-tick requoting and
// SQL Server bracket requoting. Only identifier quoting is rewritten;
// aliases are not rebound for any dialect. Other dialects pass through
// unchanged.
func stageDialectPostPass(ctx StageContext, sql string) string {
	switch ctx.Adapter.Name() {
	case "MySql":
		return requoteWithBackticks(sql)
	case "SqlServer":
		return rebindBracketIdentifiers(sql)
	default:
		return sql
	}
}

// requoteWithBackticks converts [bracket] quoted identifiers a model
// may have emitted into MySQL backtick form. Double-quoted text is left
// as it is.
func requoteWithBackticks(sql string) string {
	sql = bracketIdentifierPattern.ReplaceAllString(sql, "`$1`")
	return sql
}

// rebindBracketIdentifiers converts backtick-quoted identifiers a model
// may have emitted into SQL Server bracket form and deletes every
// double-quote character, leaving formerly double-quoted identifiers
// unquoted.
func rebindBracketIdentifiers(sql string) string {
	sql = backtickIdentifierPattern.ReplaceAllString(sql, "[$1]")
	return strings.ReplaceAll(sql, `"`, "")
}
