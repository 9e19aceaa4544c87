package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// PrimaryConstraint is the name under which every catalog reports a
// primary key constraint from GetForeignKeys.
const PrimaryConstraint = "PRIMARY"

// MySQL implements the Database interface for MySQL
type MySQL struct {
	config Config
	db     *sql.DB
}

// NewMySQL creates a new MySQL database connection
func NewMySQL(config Config) *MySQL {
	return &MySQL{config: config}
}

// Dialect returns the dialect name.
func (m *MySQL) Dialect() string { return DialectMySQL }

// DSN returns the data source name for the configured server.
func (m *MySQL) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = m.config.User
	cfg.Passwd = m.config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.config.Host, m.config.Port)
	cfg.DBName = m.config.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connect establishes a connection to MySQL
func (m *MySQL) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", m.DSN())
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m.db = db
	return nil
}

// Close closes the MySQL connection
func (m *MySQL) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Exec runs a single DDL statement.
func (m *MySQL) Exec(ctx context.Context, stmt string) error {
	_, err := m.db.ExecContext(ctx, stmt)
	return err
}

// ListTables retrieves all table names in the database
func (m *MySQL) ListTables(ctx context.Context) ([]string, error) {
	query := "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"
	rows, err := m.db.QueryContext(ctx, query, m.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// GetColumns retrieves the column catalog of a table in ordinal order
func (m *MySQL) GetColumns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	query := `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			IS_NULLABLE,
			COLUMN_DEFAULT,
			COLUMN_KEY,
			EXTRA
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := m.db.QueryContext(ctx, query, m.config.Database, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var nullable, key, extra string
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &col.RawType, &nullable, &defaultValue, &key, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Nullable = nullable == "YES"
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		col.IsPrimary = key == "PRI"
		col.IsUnique = key == "UNI"
		col.IsAutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// GetForeignKeys retrieves foreign key and primary key constraints by column
func (m *MySQL) GetForeignKeys(ctx context.Context, tableName string) (map[string]ConstraintRef, error) {
	query := `
		SELECT
			CONSTRAINT_NAME,
			COLUMN_NAME,
			COALESCE(REFERENCED_TABLE_NAME, ''),
			COALESCE(REFERENCED_COLUMN_NAME, '')
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
			AND (REFERENCED_TABLE_NAME IS NOT NULL OR CONSTRAINT_NAME = 'PRIMARY')
		ORDER BY ORDINAL_POSITION
	`
	rows, err := m.db.QueryContext(ctx, query, m.config.Database, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]ConstraintRef)
	for rows.Next() {
		var column string
		var ref ConstraintRef
		if err := rows.Scan(&ref.Name, &column, &ref.ReferencedTable, &ref.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		addConstraint(refs, column, ref)
	}

	return refs, rows.Err()
}

// addConstraint records ref for column. A foreign key wins over the
// primary key constraint when a column carries both.
func addConstraint(refs map[string]ConstraintRef, column string, ref ConstraintRef) {
	if existing, ok := refs[column]; ok && existing.Name != PrimaryConstraint {
		return
	}
	refs[column] = ref
}
