package generator

import (
	"fmt"
	"strings"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/schema"
)

// MySQLBuilder generates MySQL DDL statements
type MySQLBuilder struct {
	base
}

// NewMySQLBuilder creates a new MySQL builder
func NewMySQLBuilder(opts ...Option) *MySQLBuilder {
	return &MySQLBuilder{base: newBase(MySQLInflator{}, opts)}
}

func (b *MySQLBuilder) Dialect() string { return database.DialectMySQL }

func (b *MySQLBuilder) BuildCreateTable(s *schema.Schema) (string, error) {
	return createTable(s, b.quoteIdentifier, func(col *schema.Column) (string, error) {
		def := b.columnDefinition(col, true, true)
		return b.withReference(def, s, col.Name, b.quoteIdentifier)
	})
}

func (b *MySQLBuilder) BuildAlterTable(table string, diffs []diff.ColumnDiff) (*AlterTable, error) {
	ops, err := alterOperations(b, table, diffs)
	if err != nil {
		return nil, err
	}
	return &AlterTable{Table: table, Operations: ops, quotedTable: b.quoteIdentifier(table)}, nil
}

func (b *MySQLBuilder) BuildForeignKey(table string, fk ForeignKey) (*AlterTable, error) {
	return foreignKey(table, fk, b.quoteIdentifier, false), nil
}

// CanonicalColumn drops integer display widths, which MySQL 8 no longer
// reports and which carry no meaning on older servers.
func (b *MySQLBuilder) CanonicalColumn(col schema.Column) schema.Column {
	if col.Kind == schema.KindInteger {
		col.Length = 0
	}
	return col
}

func (b *MySQLBuilder) addColumnClause(_ string, col *schema.Column) (string, error) {
	return "ADD COLUMN " + b.columnDefinition(col, true, true), nil
}

func (b *MySQLBuilder) dropColumnClause(_, name string) (string, error) {
	return "DROP COLUMN " + b.quoteIdentifier(name), nil
}

func (b *MySQLBuilder) addPrimaryKeyClause(_, name string) (string, error) {
	return fmt.Sprintf("ADD PRIMARY KEY (%s)", b.quoteIdentifier(name)), nil
}

// modifyColumnClause redefines a column. The primary key survives a
// MODIFY, and repeating UNIQUE would create a second index. A unique
// index dropped from the column is removed under the name MySQL gives an
// inline UNIQUE, which is the column name.
func (b *MySQLBuilder) modifyColumnClause(_ string, before, after *schema.Column) (string, error) {
	clause := "MODIFY COLUMN " + b.columnDefinition(after, false, !before.Unique)
	if before.Unique && !after.Unique {
		clause = "DROP INDEX " + b.quoteIdentifier(after.Name) + ", " + clause
	}
	return clause, nil
}

func (b *MySQLBuilder) columnDefinition(col *schema.Column, primary, unique bool) string {
	def := b.quoteIdentifier(col.Name) + " " + col.TypeString()

	if col.Required {
		def += " NOT NULL"
	}
	if v := b.defaultValue(col.Default); v != "" {
		def += " DEFAULT " + v
	}
	if primary && col.Primary {
		def += " PRIMARY KEY"
	}
	if col.AutoIncrement {
		def += " AUTO_INCREMENT"
	}
	if unique && col.Unique {
		def += " UNIQUE"
	}
	return def
}

func (b *MySQLBuilder) quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// createTable renders a CREATE TABLE statement from one definition per
// column.
func createTable(s *schema.Schema, quote func(string) string, define func(*schema.Column) (string, error)) (string, error) {
	columns := s.Columns()
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: table %s has no columns", schema.ErrInvalidDefinition, s.Table())
	}

	parts := make([]string, 0, len(columns))
	for i := range columns {
		def, err := define(&columns[i])
		if err != nil {
			return "", err
		}
		parts = append(parts, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", quote(s.Table()), strings.Join(parts, ",\n  ")), nil
}

// withReference appends an inline REFERENCES clause when column is the
// self column of a hasOne relation.
func (b *base) withReference(def string, s *schema.Schema, column string, quote func(string) string) (string, error) {
	table, foreignColumn, err := b.reference(s, column)
	if err != nil {
		return "", err
	}
	if table == "" {
		return def, nil
	}
	def += " REFERENCES " + quote(table)
	if foreignColumn != "" {
		def += " (" + quote(foreignColumn) + ")"
	}
	return def, nil
}

func foreignKey(table string, fk ForeignKey, quote func(string) string, separate bool) *AlterTable {
	name := fk.Name
	if name == "" {
		name = ForeignKeyName(table, fk.Column)
	}
	clause := fmt.Sprintf("ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quote(name),
		quote(fk.Column),
		quote(fk.ReferencedTable),
		quote(fk.ReferencedColumn),
	)
	return &AlterTable{
		Table:       table,
		Operations:  []Operation{{Kind: OpAddForeignKey, Column: fk.Column, Clause: clause}},
		quotedTable: quote(table),
		separate:    separate,
	}
}
