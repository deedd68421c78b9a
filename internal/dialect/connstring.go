package dialect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned by ResolveSqliteFilePath when a caller
// attempts to escape the project root via "..", "//", or "\\".
type ErrPathTraversal struct {
	Path string
}

func (e *ErrPathTraversal) Error() string {
	return fmt.Sprintf("sqlite file path rejected (path traversal guard): %s", e.Path)
}

// ResolveSqliteFilePath implements the connection-string handling rules
// from spec.md §6: ".." , "//", and "\\" are rejected outright; relative
// paths are resolved against the working directory after a one-time
// project-root probe (the same walk-up-to-.git/go.mod search
// zakandrewking-lockplane's internal/config.getConfigPath performs for
// lockplane.toml).
func ResolveSqliteFilePath(path string) (string, error) {
	if path == ":memory:" || path == "" {
		return path, nil
	}
	if strings.Contains(path, "..") || strings.Contains(path, "//") || strings.Contains(path, `\\`) {
		return "", &ErrPathTraversal{Path: path}
	}
	if filepath.IsAbs(path) {
		return path, nil
	}

	root, err := projectRoot()
	if err != nil {
		// No project root found; fall back to the plain working directory.
		return path, nil
	}
	return filepath.Join(root, path), nil
}

// projectRoot walks up from the current working directory looking for a
// ".git" or "go.mod" marker, the same probe lockplane's config loader
// uses to find lockplane.toml from any subdirectory.
func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("project root not found (no .git or go.mod above %s)", dir)
}

// MySQLDSN builds a go-sql-driver/mysql DSN, mirroring the teacher's
// MySQLAdapter.Connect.
func MySQLDSN(host string, port int, database, user, password string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", user, password, host, port, database)
}

// PostgresDSN builds a lib/pq DSN, mirroring the teacher's
// PostgreSQLAdapter.Connect.
func PostgresDSN(host string, port int, database, user, password, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslMode)
}

// SqlServerDSN builds a microsoft/go-mssqldb DSN.
func SqlServerDSN(host string, port int, database, user, password string) string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s", user, password, host, port, database)
}
