package snapshot

import (
	"context"
	"database/sql"
)

const (
	// SQLite schema for storing snapshots
	createMetadataTable = `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	createTableColumnsTable = `
		CREATE TABLE IF NOT EXISTS table_columns (
			table_name TEXT NOT NULL,
			position INTEGER NOT NULL,
			column_json TEXT NOT NULL,
			PRIMARY KEY (table_name, position)
		);
	`

	createTableConstraintsTable = `
		CREATE TABLE IF NOT EXISTS table_constraints (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			constraint_name TEXT NOT NULL,
			referenced_table TEXT NOT NULL DEFAULT '',
			referenced_column TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (table_name, column_name)
		);
	`
)

// initializeSchema creates the tables of a snapshot file
func initializeSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{createMetadataTable, createTableColumnsTable, createTableConstraintsTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
