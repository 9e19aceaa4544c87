// Package snapshot stores catalog metadata in a SQLite file and serves it
// back as an offline catalog.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/koba/dbsync/internal/database"
)

const (
	metaCreatedAt  = "created_at"
	metaDialect    = "dialect"
	metaReferences = "references"
)

// Snapshot is catalog metadata captured at one point in time.
type Snapshot struct {
	Metadata map[string]string

	tables  []string
	columns map[string][]database.ColumnInfo
	refs    map[string]map[string]database.ConstraintRef
}

// Create captures tables of catalog into a new snapshot file at
// outputPath, replacing any previous file. All tables are captured when
// tables is empty.
func Create(ctx context.Context, catalog database.Catalog, tables []string, outputPath string) error {
	// Ensure output directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if _, err := os.Stat(outputPath); err == nil {
		if err := os.Remove(outputPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot: %w", err)
		}
	}

	snapshotDB, err := sql.Open("sqlite", outputPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot database: %w", err)
	}
	defer snapshotDB.Close()

	if err := initializeSchema(ctx, snapshotDB); err != nil {
		return fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	if len(tables) == 0 {
		tables, err = catalog.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("failed to get all tables: %w", err)
		}
	}

	refCatalog, hasRefs := catalog.(database.ReferenceCatalog)
	metadata := map[string]string{
		metaCreatedAt:  time.Now().Format(time.RFC3339),
		metaDialect:    "unknown",
		metaReferences: fmt.Sprint(hasRefs),
	}
	if d, ok := catalog.(interface{ Dialect() string }); ok {
		metadata[metaDialect] = d.Dialect()
	}

	tx, err := snapshotDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range metadata {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata: %w", err)
		}
	}

	for _, table := range tables {
		if err := snapshotTable(ctx, tx, catalog, table); err != nil {
			return fmt.Errorf("failed to snapshot table %s: %w", table, err)
		}
		if hasRefs {
			if err := snapshotConstraints(ctx, tx, refCatalog, table); err != nil {
				return fmt.Errorf("failed to snapshot constraints of %s: %w", table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func snapshotTable(ctx context.Context, tx *sql.Tx, catalog database.Catalog, table string) error {
	columns, err := catalog.GetColumns(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to get columns: %w", err)
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", table)
	}

	for i, col := range columns {
		columnJSON, err := json.Marshal(col)
		if err != nil {
			return fmt.Errorf("failed to marshal column: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO table_columns (table_name, position, column_json) VALUES (?, ?, ?)",
			table, i, string(columnJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert column: %w", err)
		}
	}
	return nil
}

func snapshotConstraints(ctx context.Context, tx *sql.Tx, catalog database.ReferenceCatalog, table string) error {
	refs, err := catalog.GetForeignKeys(ctx, table)
	if err != nil {
		return err
	}
	for column, ref := range refs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO table_constraints (table_name, column_name, constraint_name, referenced_table, referenced_column)
			VALUES (?, ?, ?, ?, ?)`,
			table, column, ref.Name, ref.ReferencedTable, ref.ReferencedColumn,
		)
		if err != nil {
			return fmt.Errorf("failed to insert constraint: %w", err)
		}
	}
	return nil
}

// Open loads a snapshot file into memory.
func Open(ctx context.Context, snapshotPath string) (*Snapshot, error) {
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot file does not exist: %s", snapshotPath)
	}

	db, err := sql.Open("sqlite", snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	snap := &Snapshot{
		Metadata: make(map[string]string),
		columns:  make(map[string][]database.ColumnInfo),
		refs:     make(map[string]map[string]database.ConstraintRef),
	}

	if err := snap.loadMetadata(ctx, db); err != nil {
		return nil, err
	}
	if err := snap.loadColumns(ctx, db); err != nil {
		return nil, err
	}
	if err := snap.loadConstraints(ctx, db); err != nil {
		return nil, err
	}

	for table := range snap.columns {
		snap.tables = append(snap.tables, table)
	}
	sort.Strings(snap.tables)
	return snap, nil
}

func (s *Snapshot) loadMetadata(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan metadata: %w", err)
		}
		s.Metadata[key] = value
	}
	return rows.Err()
}

func (s *Snapshot) loadColumns(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT table_name, column_json FROM table_columns ORDER BY table_name, position")
	if err != nil {
		return fmt.Errorf("failed to query table columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, columnJSON string
		if err := rows.Scan(&table, &columnJSON); err != nil {
			return fmt.Errorf("failed to scan table column: %w", err)
		}
		var col database.ColumnInfo
		if err := json.Unmarshal([]byte(columnJSON), &col); err != nil {
			return fmt.Errorf("failed to unmarshal column: %w", err)
		}
		s.columns[table] = append(s.columns[table], col)
	}
	return rows.Err()
}

func (s *Snapshot) loadConstraints(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		"SELECT table_name, column_name, constraint_name, referenced_table, referenced_column FROM table_constraints")
	if err != nil {
		return fmt.Errorf("failed to query table constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		var ref database.ConstraintRef
		if err := rows.Scan(&table, &column, &ref.Name, &ref.ReferencedTable, &ref.ReferencedColumn); err != nil {
			return fmt.Errorf("failed to scan table constraint: %w", err)
		}
		if s.refs[table] == nil {
			s.refs[table] = make(map[string]database.ConstraintRef)
		}
		s.refs[table][column] = ref
	}
	return rows.Err()
}

// Dialect returns the dialect of the captured database.
func (s *Snapshot) Dialect() string { return s.Metadata[metaDialect] }

// CreatedAt returns when the snapshot was taken.
func (s *Snapshot) CreatedAt() string { return s.Metadata[metaCreatedAt] }

// ListTables returns the captured tables sorted by name.
func (s *Snapshot) ListTables(context.Context) ([]string, error) {
	return append([]string(nil), s.tables...), nil
}

// GetColumns returns the captured columns of a table, or none when the
// table was not captured.
func (s *Snapshot) GetColumns(_ context.Context, table string) ([]database.ColumnInfo, error) {
	return append([]database.ColumnInfo(nil), s.columns[table]...), nil
}

// GetForeignKeys returns the captured constraints of a table.
func (s *Snapshot) GetForeignKeys(_ context.Context, table string) (map[string]database.ConstraintRef, error) {
	refs := make(map[string]database.ConstraintRef, len(s.refs[table]))
	for column, ref := range s.refs[table] {
		refs[column] = ref
	}
	return refs, nil
}
