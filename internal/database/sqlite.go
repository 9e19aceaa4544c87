package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite implements the Database interface for SQLite files
type SQLite struct {
	config Config
	db     *sql.DB
}

// NewSQLite creates a new SQLite database connection
func NewSQLite(config Config) *SQLite {
	return &SQLite{config: config}
}

// Dialect returns the dialect name.
func (s *SQLite) Dialect() string { return DialectSQLite }

// Connect opens the SQLite database file
func (s *SQLite) Connect(ctx context.Context) error {
	path := s.config.Path
	if path == "" {
		path = s.config.Database
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive between queries
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping SQLite: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the SQLite connection
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Exec runs a single DDL statement.
func (s *SQLite) Exec(ctx context.Context, stmt string) error {
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// ListTables retrieves all user table names
func (s *SQLite) ListTables(ctx context.Context) ([]string, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
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

// GetColumns retrieves the column catalog of a table in declaration order
func (s *SQLite) GetColumns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	var tableSQL sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Scan(&tableSQL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table definition: %w", err)
	}
	autoIncrement := strings.Contains(strings.ToUpper(tableSQL.String), "AUTOINCREMENT")

	unique, err := s.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	pkCount := 0
	for rows.Next() {
		var col ColumnInfo
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &col.RawType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Nullable = notNull == 0
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		col.IsPrimary = pk > 0
		col.IsUnique = unique[col.Name]
		if col.IsPrimary {
			pkCount++
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// AUTOINCREMENT is only valid on a single INTEGER PRIMARY KEY column
	if autoIncrement && pkCount == 1 {
		for i := range columns {
			if columns[i].IsPrimary {
				columns[i].IsAutoIncrement = true
			}
		}
	}

	return columns, nil
}

// uniqueColumns returns the columns covered by a single-column unique index.
func (s *SQLite) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	query := `
		SELECT il.name, ii.name
		FROM pragma_index_list(?) AS il, pragma_index_info(il.name) AS ii
		WHERE il."unique" = 1 AND il.origin <> 'pk'
	`
	rows, err := s.db.QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	defer rows.Close()

	indexColumns := make(map[string][]string)
	for rows.Next() {
		var indexName, columnName string
		if err := rows.Scan(&indexName, &columnName); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		indexColumns[indexName] = append(indexColumns[indexName], columnName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unique := make(map[string]bool)
	for _, cols := range indexColumns {
		if len(cols) == 1 {
			unique[cols[0]] = true
		}
	}
	return unique, nil
}

// GetForeignKeys retrieves foreign key and primary key constraints by column.
// SQLite does not keep constraint names, so foreign keys are reported as
// fk_<table>_<column>.
func (s *SQLite) GetForeignKeys(ctx context.Context, tableName string) (map[string]ConstraintRef, error) {
	refs := make(map[string]ConstraintRef)

	pkRows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) WHERE pk > 0", tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	for pkRows.Next() {
		var column string
		if err := pkRows.Scan(&column); err != nil {
			pkRows.Close()
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		addConstraint(refs, column, ConstraintRef{Name: PrimaryConstraint})
	}
	pkErr := pkRows.Err()
	pkRows.Close()
	if pkErr != nil {
		return nil, pkErr
	}

	rows, err := s.db.QueryContext(ctx, `SELECT "table", "from", COALESCE("to", '') FROM pragma_foreign_key_list(?) ORDER BY id, seq`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var column string
		var ref ConstraintRef
		if err := rows.Scan(&ref.ReferencedTable, &column, &ref.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		ref.Name = fmt.Sprintf("fk_%s_%s", tableName, column)
		addConstraint(refs, column, ref)
	}

	return refs, rows.Err()
}
