// Package config loads the per-database configuration described in
// spec.md §6 from a TOML file, the same way zakandrewking-lockplane's
// internal/config loads lockplane.toml: a project-root probe walking up
// from the working directory, decoded with pelletier/go-toml/v2.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reactsql/internal/catalog"
	"reactsql/internal/dialect"
)

const configFileName = "reactsql.toml"

const (
	defaultMaxRowsPerQuery  = 100
	defaultQueryTimeoutSecs = 30
)

// CrossMappingConfig is one cross-database column equality, as declared
// in a database's crossDatabaseMappings list (spec.md §3 CrossMapping).
type CrossMappingConfig struct {
	SourceDB     string `toml:"sourceDb"`
	SourceTable  string `toml:"sourceTable"`
	SourceColumn string `toml:"sourceColumn"`
	TargetDB     string `toml:"targetDb"`
	TargetTable  string `toml:"targetTable"`
	TargetColumn string `toml:"targetColumn"`
}

// DatabaseConfig is one [[databases]] entry (spec.md §6).
type DatabaseConfig struct {
	Name                 string               `toml:"name"`
	Dialect              string               `toml:"dialect"`
	ConnectionString     string               `toml:"connectionString"`
	MaxRowsPerQuery      int                  `toml:"maxRowsPerQuery"`
	IncludedTables       []string             `toml:"includedTables"`
	ExcludedTables       []string             `toml:"excludedTables"`
	SensitiveColumns     []string             `toml:"sensitiveColumns"`
	QueryTimeoutSeconds  int                  `toml:"queryTimeoutSeconds"`
	CrossDatabaseMappings []CrossMappingConfig `toml:"crossDatabaseMappings"`
}

// Config is the top-level decoded document.
type Config struct {
	Databases      []DatabaseConfig `toml:"databases"`
	ConfigFilePath string           `toml:"-"`
}

// Load reads reactsql.toml starting from a project-root probe (walking
// up from the working directory looking for ".git" or "go.mod", per
// dialect.ResolveSqliteFilePath's projectRoot helper) and applies the
// spec.md §6 defaults (maxRowsPerQuery=100, queryTimeoutSeconds=30).
func Load() (*Config, error) {
	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile decodes a specific TOML file, applying the same defaults as
// Load. Exposed separately so callers (and tests) can bypass the
// project-root probe.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.ConfigFilePath = path

	for i := range cfg.Databases {
		applyDefaults(&cfg.Databases[i])
	}
	return &cfg, nil
}

func applyDefaults(db *DatabaseConfig) {
	if db.MaxRowsPerQuery <= 0 {
		db.MaxRowsPerQuery = defaultMaxRowsPerQuery
	}
	if db.QueryTimeoutSeconds <= 0 {
		db.QueryTimeoutSeconds = defaultQueryTimeoutSecs
	}
}

func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if isProjectRoot(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("config: %s not found above %s", configFileName, dir)
}

func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	return false
}

// ToDescriptor resolves one DatabaseConfig into the catalog's immutable
// DatabaseDescriptor, assigning a canonical id via
// catalog.CanonicalID when name is blank.
func ToDescriptor(db DatabaseConfig, catalogName string) (catalog.DatabaseDescriptor, error) {
	dialectName := dialect.Name(db.Dialect)
	if _, err := dialect.New(dialectName); err != nil {
		return catalog.DatabaseDescriptor{}, fmt.Errorf("config: database %q: %w", db.Name, err)
	}

	mappings := make([]catalog.CrossMapping, len(db.CrossDatabaseMappings))
	for i, m := range db.CrossDatabaseMappings {
		mappings[i] = catalog.CrossMapping{
			SourceDB:     m.SourceDB,
			SourceTable:  m.SourceTable,
			SourceColumn: m.SourceColumn,
			TargetDB:     m.TargetDB,
			TargetTable:  m.TargetTable,
			TargetColumn: m.TargetColumn,
		}
	}

	return catalog.DatabaseDescriptor{
		ID:               catalog.CanonicalID(db.Name, dialectName, catalogName),
		DisplayName:      db.Name,
		Dialect:          dialectName,
		ConnectionString: dialect.ConnectionString(db.ConnectionString),
		RowCap:           db.MaxRowsPerQuery,
		IncludedTables:   db.IncludedTables,
		ExcludedTables:   db.ExcludedTables,
		CrossMappings:    mappings,
		SensitiveColumns: db.SensitiveColumns,
		QueryTimeout:     time.Duration(db.QueryTimeoutSeconds) * time.Second,
	}, nil
}
