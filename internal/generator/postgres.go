package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/schema"
)

// PostgresBuilder generates PostgreSQL DDL statements
type PostgresBuilder struct {
	base
}

// NewPostgresBuilder creates a new PostgreSQL builder
func NewPostgresBuilder(opts ...Option) *PostgresBuilder {
	return &PostgresBuilder{base: newBase(PostgresInflator{}, opts)}
}

func (b *PostgresBuilder) Dialect() string { return database.DialectPostgres }

func (b *PostgresBuilder) BuildCreateTable(s *schema.Schema) (string, error) {
	return createTable(s, pq.QuoteIdentifier, func(col *schema.Column) (string, error) {
		return b.withReference(b.columnDefinition(col), s, col.Name, pq.QuoteIdentifier)
	})
}

func (b *PostgresBuilder) BuildAlterTable(table string, diffs []diff.ColumnDiff) (*AlterTable, error) {
	ops, err := alterOperations(b, table, diffs)
	if err != nil {
		return nil, err
	}
	return &AlterTable{Table: table, Operations: ops, quotedTable: pq.QuoteIdentifier(table)}, nil
}

func (b *PostgresBuilder) BuildForeignKey(table string, fk ForeignKey) (*AlterTable, error) {
	return foreignKey(table, fk, pq.QuoteIdentifier, false), nil
}

// CanonicalColumn spells col the way PostgreSQL reports it. Serial
// columns are reported as their integer type.
func (b *PostgresBuilder) CanonicalColumn(col schema.Column) schema.Column {
	return retype(col, postgresType(&col, false))
}

func (b *PostgresBuilder) addColumnClause(_ string, col *schema.Column) (string, error) {
	return "ADD COLUMN " + b.columnDefinition(col), nil
}

func (b *PostgresBuilder) dropColumnClause(_, name string) (string, error) {
	return "DROP COLUMN " + pq.QuoteIdentifier(name), nil
}

func (b *PostgresBuilder) addPrimaryKeyClause(_, name string) (string, error) {
	return fmt.Sprintf("ADD PRIMARY KEY (%s)", pq.QuoteIdentifier(name)), nil
}

// modifyColumnClause emits one ALTER COLUMN action per changed attribute.
func (b *PostgresBuilder) modifyColumnClause(table string, before, after *schema.Column) (string, error) {
	col := pq.QuoteIdentifier(after.Name)
	var actions []string

	typ := postgresType(after, false)
	if postgresType(before, false) != typ {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, typ))
	}

	switch {
	case !before.AutoIncrement && after.AutoIncrement:
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s ADD GENERATED BY DEFAULT AS IDENTITY", col))
	case before.AutoIncrement && !after.AutoIncrement:
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP IDENTITY IF EXISTS", col))
	}

	if before.Required != after.Required {
		if after.Required {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
		} else {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
		}
	}

	if oldDefault, newDefault := b.defaultValue(before.Default), b.defaultValue(after.Default); oldDefault != newDefault {
		if newDefault == "" {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
		} else {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, newDefault))
		}
	}

	switch {
	case !before.Unique && after.Unique:
		actions = append(actions, fmt.Sprintf("ADD UNIQUE (%s)", col))
	case before.Unique && !after.Unique:
		actions = append(actions, "DROP CONSTRAINT "+pq.QuoteIdentifier(table+"_"+after.Name+"_key"))
	}

	if len(actions) == 0 {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s TYPE %s", col, typ))
	}
	return strings.Join(actions, ", "), nil
}

func (b *PostgresBuilder) columnDefinition(col *schema.Column) string {
	def := pq.QuoteIdentifier(col.Name) + " " + postgresType(col, true)

	if col.Required {
		def += " NOT NULL"
	}
	if v := b.defaultValue(col.Default); v != "" {
		def += " DEFAULT " + v
	}
	if col.Primary {
		def += " PRIMARY KEY"
	}
	if col.Unique {
		def += " UNIQUE"
	}
	return def
}

// postgresType spells a column type for PostgreSQL. Auto-increment columns
// become serial types when serial is set.
func postgresType(col *schema.Column, serial bool) string {
	t := col.Type
	if serial && col.AutoIncrement {
		switch t {
		case "int", "mediumint":
			return "serial"
		case "bigint":
			return "bigserial"
		case "smallint", "tinyint":
			return "smallserial"
		}
	}

	switch {
	case t == "int" || t == "mediumint":
		t = "integer"
	case t == "tinyint":
		t = "smallint"
	case t == "bool":
		t = "boolean"
	case t == "double":
		t = "double precision"
	case t == "float":
		t = "real"
	case t == "datetime":
		t = "timestamp"
	case strings.HasSuffix(t, "text"):
		t = "text"
	case strings.HasSuffix(t, "blob") || t == "binary" || t == "varbinary":
		return "bytea"
	}

	sized := col.Length > 0 && t != "text"
	switch col.Kind {
	case schema.KindInteger, schema.KindBoolean, schema.KindFloat:
		sized = false
	case schema.KindDouble:
		sized = sized && t == "decimal"
	}
	if !sized {
		return t
	}
	if col.Precision > 0 {
		return t + "(" + strconv.Itoa(col.Length) + "," + strconv.Itoa(col.Precision) + ")"
	}
	return t + "(" + strconv.Itoa(col.Length) + ")"
}
