// Package generator renders schemas and column diffs into dialect-specific
// DDL statements. Builders never execute anything.
package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/schema"
)

var (
	// ErrUnsupportedDiffFlag means a diff carried a flag outside
	// Added/Dropped/Modified. It indicates a bug, not bad input.
	ErrUnsupportedDiffFlag = errors.New("unsupported diff flag")
	// ErrUnsupportedOperation is returned when a dialect cannot express an
	// operation as DDL.
	ErrUnsupportedOperation = errors.New("operation not supported by dialect")
)

// Builder renders DDL for one dialect.
type Builder interface {
	Dialect() string
	BuildCreateTable(s *schema.Schema) (string, error)
	BuildAlterTable(table string, diffs []diff.ColumnDiff) (*AlterTable, error)
	// CanonicalColumn returns col with its type spelled the way the
	// dialect's catalog reports a column this builder created.
	CanonicalColumn(col schema.Column) schema.Column
}

// ForeignKeyBuilder is implemented by builders whose dialect can add a
// foreign key constraint to an existing table.
type ForeignKeyBuilder interface {
	BuildForeignKey(table string, fk ForeignKey) (*AlterTable, error)
}

// ForeignKey describes a foreign key constraint to add.
type ForeignKey struct {
	Name             string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// ForeignKeyName returns the constraint name used for a column.
func ForeignKeyName(table, column string) string {
	return fmt.Sprintf("fk_%s_%s", table, column)
}

// OpKind identifies an ALTER TABLE operation.
type OpKind int

const (
	OpAddColumn OpKind = iota
	OpDropColumn
	OpAddPrimaryKey
	OpModifyColumn
	OpAddForeignKey
)

func (k OpKind) String() string {
	switch k {
	case OpAddColumn:
		return "add-column"
	case OpDropColumn:
		return "drop-column"
	case OpAddPrimaryKey:
		return "add-primary-key"
	case OpModifyColumn:
		return "modify-column"
	case OpAddForeignKey:
		return "add-foreign-key"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Operation is one clause of an ALTER TABLE statement.
type Operation struct {
	Kind   OpKind
	Column string
	Clause string
}

// AlterTable is a list of operations on one table.
type AlterTable struct {
	Table      string
	Operations []Operation

	quotedTable string
	separate    bool
}

// Empty reports whether the statement has no operations.
func (a *AlterTable) Empty() bool { return a == nil || len(a.Operations) == 0 }

// Statements renders the operations as SQL. Dialects that accept several
// clauses per ALTER TABLE get one statement, others one per operation.
func (a *AlterTable) Statements() []string {
	if a.Empty() {
		return nil
	}
	prefix := "ALTER TABLE " + a.quotedTable + " "
	if a.separate {
		stmts := make([]string, len(a.Operations))
		for i, op := range a.Operations {
			stmts[i] = prefix + op.Clause
		}
		return stmts
	}
	clauses := make([]string, len(a.Operations))
	for i, op := range a.Operations {
		clauses[i] = op.Clause
	}
	return []string{prefix + strings.Join(clauses, ", ")}
}

func (a *AlterTable) String() string {
	return strings.Join(a.Statements(), ";\n")
}

// Option configures a builder.
type Option func(*base)

// WithResolver sets the resolver used to find the tables of related schemas.
func WithResolver(r schema.Resolver) Option {
	return func(b *base) { b.resolver = r }
}

// WithInflator replaces the dialect's literal inflator.
func WithInflator(inf Inflator) Option {
	return func(b *base) { b.inflator = inf }
}

// NewBuilder creates a builder for the given database type
func NewBuilder(dbType string, opts ...Option) (Builder, error) {
	dialect, err := database.NormalizeDialect(dbType)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case database.DialectMySQL:
		return NewMySQLBuilder(opts...), nil
	case database.DialectPostgres:
		return NewPostgresBuilder(opts...), nil
	default:
		return NewSQLiteBuilder(opts...), nil
	}
}

// base holds what every dialect builder shares.
type base struct {
	resolver schema.Resolver
	inflator Inflator
}

func newBase(inf Inflator, opts []Option) base {
	b := base{inflator: inf}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// defaultValue renders the DEFAULT expression of a column, or "" when the
// column has no default in DDL. Computed defaults are left to the
// application.
func (b *base) defaultValue(d schema.Default) string {
	switch d.Kind {
	case schema.LiteralDefault:
		return b.inflator.Inflate(d.Value)
	case schema.RawDefault:
		return d.Expr
	}
	return ""
}

// reference returns the foreign table and column of a hasOne relation
// whose self column is column. belongsTo relations are added later as
// explicit constraints since the foreign table may not exist yet.
func (b *base) reference(s *schema.Schema, column string) (table, foreignColumn string, err error) {
	for _, accessor := range s.Accessors() {
		rel := s.Relations()[accessor]
		if rel.Kind != schema.HasOne || rel.SelfColumn != column {
			continue
		}
		if b.resolver == nil {
			return "", "", fmt.Errorf("failed to resolve relation %s.%s: %w", s.Table(), accessor, schema.ErrSchemaNotFound)
		}
		foreign, err := b.resolver.Resolve(rel.Foreign)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve relation %s.%s: %w", s.Table(), accessor, err)
		}
		return foreign.Table(), rel.ForeignColumn, nil
	}
	return "", "", nil
}

// retype replaces the type attributes of col with the parsed form of
// rendered. col is returned unchanged when rendered cannot be parsed.
func retype(col schema.Column, rendered string) schema.Column {
	info, err := schema.ParseTypeInfo(rendered)
	if err != nil {
		return col
	}
	col.Type = info.Type
	col.Length = info.Length
	col.Precision = info.Precision
	col.Unsigned = info.Unsigned
	col.Kind = info.Kind
	return col
}

// clauseBuilder renders the single-column ALTER TABLE clauses of a dialect.
type clauseBuilder interface {
	addColumnClause(table string, col *schema.Column) (string, error)
	dropColumnClause(table, name string) (string, error)
	addPrimaryKeyClause(table, name string) (string, error)
	modifyColumnClause(table string, before, after *schema.Column) (string, error)
}

// alterOperations translates diffs into operations. A column promoted to
// primary key gets the key added before it is redefined.
func alterOperations(cb clauseBuilder, table string, diffs []diff.ColumnDiff) ([]Operation, error) {
	var ops []Operation
	for _, d := range diffs {
		switch d.Flag {
		case diff.Added:
			if d.After == nil {
				return nil, fmt.Errorf("added column %s.%s has no definition", table, d.Name)
			}
			clause, err := cb.addColumnClause(table, d.After)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Operation{Kind: OpAddColumn, Column: d.Name, Clause: clause})

		case diff.Dropped:
			clause, err := cb.dropColumnClause(table, d.Name)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Operation{Kind: OpDropColumn, Column: d.Name, Clause: clause})

		case diff.Modified:
			if d.Before == nil || d.After == nil {
				return nil, fmt.Errorf("modified column %s.%s is missing its before or after state", table, d.Name)
			}
			if !d.Before.Primary && d.After.Primary {
				clause, err := cb.addPrimaryKeyClause(table, d.Name)
				if err != nil {
					return nil, err
				}
				ops = append(ops, Operation{Kind: OpAddPrimaryKey, Column: d.Name, Clause: clause})
			}
			clause, err := cb.modifyColumnClause(table, d.Before, d.After)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Operation{Kind: OpModifyColumn, Column: d.Name, Clause: clause})

		default:
			return nil, fmt.Errorf("%w: %q on %s.%s", ErrUnsupportedDiffFlag, string(d.Flag), table, d.Name)
		}
	}
	return ops, nil
}
