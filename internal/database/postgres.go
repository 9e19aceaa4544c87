package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const postgresSchema = "public"

// Postgres implements the Database interface for PostgreSQL
type Postgres struct {
	config Config
	db     *sql.DB
}

// NewPostgres creates a new PostgreSQL database connection
func NewPostgres(config Config) *Postgres {
	return &Postgres{config: config}
}

// Dialect returns the dialect name.
func (p *Postgres) Dialect() string { return DialectPostgres }

// DriverName returns the database/sql driver used for the connection:
// lib/pq by default, jackc/pgx when configured.
func (p *Postgres) DriverName() string {
	if strings.EqualFold(p.config.Driver, "pgx") {
		return "pgx"
	}
	return "postgres"
}

// Connect establishes a connection to PostgreSQL
func (p *Postgres) Connect(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.config.Host,
		p.config.Port,
		p.config.User,
		p.config.Password,
		p.config.Database,
	)

	db, err := sql.Open(p.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	p.db = db
	return nil
}

// Close closes the PostgreSQL connection
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Exec runs a single DDL statement.
func (p *Postgres) Exec(ctx context.Context, stmt string) error {
	_, err := p.db.ExecContext(ctx, stmt)
	return err
}

// ListTables retrieves all table names in the public schema
func (p *Postgres) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := p.db.QueryContext(ctx, query, postgresSchema)
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

// GetColumns retrieves the column catalog of a table in attribute order
func (p *Postgres) GetColumns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	query := `
		SELECT
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			NOT a.attnotnull,
			pg_get_expr(d.adbin, d.adrelid),
			COALESCE(pk.is_primary, false),
			a.attidentity::text <> '',
			COALESCE(uq.is_unique, false)
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		LEFT JOIN LATERAL (
			SELECT true AS is_primary FROM pg_index i
			WHERE i.indrelid = c.oid AND i.indisprimary AND a.attnum = ANY(i.indkey)
			LIMIT 1
		) pk ON true
		LEFT JOIN LATERAL (
			SELECT true AS is_unique FROM pg_index i
			WHERE i.indrelid = c.oid AND i.indisunique AND NOT i.indisprimary
				AND i.indnatts = 1 AND i.indkey[0] = a.attnum
			LIMIT 1
		) uq ON true
		WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`
	rows, err := p.db.QueryContext(ctx, query, postgresSchema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var defaultValue sql.NullString

		if err := rows.Scan(&col.Name, &col.RawType, &col.Nullable, &defaultValue, &col.IsPrimary, &col.IsAutoIncrement, &col.IsUnique); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		if defaultValue.Valid {
			col.Default = &defaultValue.String
			// serial columns are backed by a sequence default
			if strings.HasPrefix(strings.ToLower(defaultValue.String), "nextval(") {
				col.IsAutoIncrement = true
			}
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// GetForeignKeys retrieves foreign key and primary key constraints by column
func (p *Postgres) GetForeignKeys(ctx context.Context, tableName string) (map[string]ConstraintRef, error) {
	query := `
		SELECT
			con.conname,
			con.contype::text,
			a.attname,
			COALESCE(fc.relname, ''),
			COALESCE(fa.attname, '')
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = ANY(con.conkey)
		LEFT JOIN pg_class fc ON fc.oid = con.confrelid
		LEFT JOIN pg_attribute fa ON fa.attrelid = con.confrelid
			AND fa.attnum = con.confkey[array_position(con.conkey, a.attnum)]
		WHERE n.nspname = $1 AND c.relname = $2 AND con.contype IN ('f', 'p')
		ORDER BY con.conname
	`
	rows, err := p.db.QueryContext(ctx, query, postgresSchema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]ConstraintRef)
	for rows.Next() {
		var kind, column string
		var ref ConstraintRef
		if err := rows.Scan(&ref.Name, &kind, &column, &ref.ReferencedTable, &ref.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if kind == "p" {
			ref = ConstraintRef{Name: PrimaryConstraint}
		}
		addConstraint(refs, column, ref)
	}

	return refs, rows.Err()
}
