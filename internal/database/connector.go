package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedDatabase is returned for an unknown database type.
var ErrUnsupportedDatabase = errors.New("unsupported database type")

// Config holds database connection configuration
type Config struct {
	Type     string // "mysql", "postgres" or "sqlite"
	Driver   string // "postgres" (lib/pq) or "pgx" for PostgreSQL
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Path     string // SQLite database file
}

// ColumnInfo is one row of a column catalog.
type ColumnInfo struct {
	Name            string  `json:"name"`
	RawType         string  `json:"raw_type"`
	Nullable        bool    `json:"nullable"`
	Default         *string `json:"default,omitempty"`
	IsPrimary       bool    `json:"is_primary"`
	IsAutoIncrement bool    `json:"is_auto_increment"`
	IsUnique        bool    `json:"is_unique"`
}

// ConstraintRef describes a key constraint on a column.
type ConstraintRef struct {
	Name             string `json:"name"`
	ReferencedTable  string `json:"referenced_table,omitempty"`
	ReferencedColumn string `json:"referenced_column,omitempty"`
}

// Catalog is the read-only metadata interface of a database.
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	GetColumns(ctx context.Context, table string) ([]ColumnInfo, error)
}

// ReferenceCatalog is implemented by catalogs that expose key constraints.
// The map is keyed by local column name.
type ReferenceCatalog interface {
	GetForeignKeys(ctx context.Context, table string) (map[string]ConstraintRef, error)
}

// Database interface defines operations for database connections
type Database interface {
	Catalog
	ReferenceCatalog
	Dialect() string
	Connect(ctx context.Context) error
	Close() error
	Exec(ctx context.Context, stmt string) error
}

// Dialect names.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// NormalizeDialect maps the accepted spellings of a database type onto a
// dialect name.
func NormalizeDialect(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "postgres", "postgresql", "pgsql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}
}

// NewDatabase creates a new database connection based on type
func NewDatabase(config Config) (Database, error) {
	dialect, err := NormalizeDialect(config.Type)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case DialectMySQL:
		return NewMySQL(config), nil
	case DialectPostgres:
		return NewPostgres(config), nil
	default:
		return NewSQLite(config), nil
	}
}
