package generator

import (
	"fmt"
	"strings"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/schema"
)

// SQLiteBuilder generates SQLite DDL statements. SQLite can only add and
// drop columns of an existing table, one per statement, and cannot add
// constraints after creation.
type SQLiteBuilder struct {
	base
}

// NewSQLiteBuilder creates a new SQLite builder
func NewSQLiteBuilder(opts ...Option) *SQLiteBuilder {
	return &SQLiteBuilder{base: newBase(SQLiteInflator{}, opts)}
}

func (b *SQLiteBuilder) Dialect() string { return database.DialectSQLite }

func (b *SQLiteBuilder) BuildCreateTable(s *schema.Schema) (string, error) {
	return createTable(s, b.quoteIdentifier, func(col *schema.Column) (string, error) {
		return b.withReference(b.columnDefinition(col), s, col.Name, b.quoteIdentifier)
	})
}

func (b *SQLiteBuilder) BuildAlterTable(table string, diffs []diff.ColumnDiff) (*AlterTable, error) {
	ops, err := alterOperations(b, table, diffs)
	if err != nil {
		return nil, err
	}
	return &AlterTable{Table: table, Operations: ops, quotedTable: b.quoteIdentifier(table), separate: true}, nil
}

// CanonicalColumn maps auto-increment primary keys onto the INTEGER rowid
// alias they are created as.
func (b *SQLiteBuilder) CanonicalColumn(col schema.Column) schema.Column {
	if col.Primary && col.AutoIncrement {
		return retype(col, "integer")
	}
	return col
}

func (b *SQLiteBuilder) addColumnClause(table string, col *schema.Column) (string, error) {
	if col.Primary || col.Unique {
		return "", fmt.Errorf("%w: sqlite cannot add key column %s.%s", ErrUnsupportedOperation, table, col.Name)
	}
	return "ADD COLUMN " + b.columnDefinition(col), nil
}

func (b *SQLiteBuilder) dropColumnClause(_, name string) (string, error) {
	return "DROP COLUMN " + b.quoteIdentifier(name), nil
}

func (b *SQLiteBuilder) addPrimaryKeyClause(table, name string) (string, error) {
	return "", fmt.Errorf("%w: sqlite cannot add a primary key to %s.%s", ErrUnsupportedOperation, table, name)
}

func (b *SQLiteBuilder) modifyColumnClause(table string, _, after *schema.Column) (string, error) {
	return "", fmt.Errorf("%w: sqlite cannot modify column %s.%s", ErrUnsupportedOperation, table, after.Name)
}

func (b *SQLiteBuilder) columnDefinition(col *schema.Column) string {
	typ := col.TypeString()
	rowID := col.Primary && col.AutoIncrement
	if rowID {
		typ = "INTEGER"
	}
	def := b.quoteIdentifier(col.Name) + " " + typ

	if col.Required {
		def += " NOT NULL"
	}
	if v := b.defaultValue(col.Default); v != "" {
		def += " DEFAULT " + v
	}
	if col.Primary {
		def += " PRIMARY KEY"
	}
	if rowID {
		def += " AUTOINCREMENT"
	}
	if col.Unique {
		def += " UNIQUE"
	}
	return def
}

func (b *SQLiteBuilder) quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
