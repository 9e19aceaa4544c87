// Package migration reconciles live tables with declared schemas.
package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/generator"
	"github.com/koba/dbsync/internal/logger"
	"github.com/koba/dbsync/internal/schema"
	"github.com/koba/dbsync/internal/tableparser"
)

// State is the reconciliation progress of one declared schema.
type State int

const (
	NotInspected State = iota
	TableMissing
	TableExists
	Reconciled
)

func (s State) String() string {
	switch s {
	case NotInspected:
		return "not-inspected"
	case TableMissing:
		return "table-missing"
	case TableExists:
		return "table-exists"
	case Reconciled:
		return "reconciled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Action is what a run did to a table.
type Action int

const (
	Unchanged Action = iota
	Created
	Altered
)

func (a Action) String() string {
	switch a {
	case Unchanged:
		return "unchanged"
	case Created:
		return "created"
	case Altered:
		return "altered"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Options are the reconciliation policies.
type Options struct {
	// SeparateAlter issues one ALTER TABLE per column change.
	SeparateAlter bool
	// NoDropColumn keeps columns missing from the declared schema.
	NoDropColumn bool
}

// TableResult is the outcome for one declared schema.
type TableResult struct {
	Table      string
	State      State
	Action     Action
	Statements []string
}

// Report lists the results in processing order.
type Report struct {
	Tables []TableResult
}

// Statements returns every executed statement in order.
func (r *Report) Statements() []string {
	var stmts []string
	for _, t := range r.Tables {
		stmts = append(stmts, t.Statements...)
	}
	return stmts
}

// Engine converges live tables towards declared schemas.
type Engine struct {
	parser   *tableparser.Parser
	builder  generator.Builder
	exec     Executor
	resolver schema.Resolver
	opts     Options
	log      *slog.Logger
}

// NewEngine creates an engine. The resolver finds the foreign schemas of
// belongsTo relations.
func NewEngine(parser *tableparser.Parser, builder generator.Builder, exec Executor, resolver schema.Resolver, opts Options) *Engine {
	return &Engine{
		parser:   parser,
		builder:  builder,
		exec:     exec,
		resolver: resolver,
		opts:     opts,
		log:      logger.Get(),
	}
}

// Run reconciles schemas in the given order, parents before children. The
// first failure stops the run and the report holds what was done so far.
func (e *Engine) Run(ctx context.Context, schemas []*schema.Schema) (*Report, error) {
	tables, err := e.parser.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(tables))
	for _, t := range tables {
		existing[t] = true
	}

	report := &Report{}
	for _, s := range schemas {
		result, err := e.reconcile(ctx, s, existing)
		report.Tables = append(report.Tables, result)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (e *Engine) reconcile(ctx context.Context, s *schema.Schema, existing map[string]bool) (TableResult, error) {
	table := s.Table()
	res := TableResult{Table: table, State: NotInspected}

	if existing[table] {
		e.transition(&res, TableExists)
		if err := e.alterTable(ctx, s, &res); err != nil {
			return res, err
		}
	} else {
		e.transition(&res, TableMissing)
		stmt, err := e.builder.BuildCreateTable(s)
		if err != nil {
			return res, fmt.Errorf("failed to build table %s: %w", table, err)
		}
		if err := e.execute(ctx, &res, stmt, false); err != nil {
			return res, err
		}
		res.Action = Created
		existing[table] = true
		e.transition(&res, Reconciled)
		return res, nil
	}

	if err := e.reconcileForeignKeys(ctx, s, &res); err != nil {
		return res, err
	}
	e.transition(&res, Reconciled)
	return res, nil
}

func (e *Engine) alterTable(ctx context.Context, s *schema.Schema, res *TableResult) error {
	before, err := e.parser.ReverseTableSchema(ctx, s.Table())
	if err != nil {
		return err
	}

	diffs := diff.CompareWith(before, s, e.builder.CanonicalColumn)
	if e.opts.NoDropColumn {
		kept := diffs[:0]
		for _, d := range diffs {
			if d.Flag == diff.Dropped {
				e.log.Debug("keeping column", "table", s.Table(), "column", d.Name)
				continue
			}
			kept = append(kept, d)
		}
		diffs = kept
	}
	if len(diffs) == 0 {
		return nil
	}

	groups := [][]diff.ColumnDiff{diffs}
	if e.opts.SeparateAlter {
		groups = groups[:0]
		for i := range diffs {
			groups = append(groups, diffs[i:i+1])
		}
	}

	for _, group := range groups {
		at, err := e.builder.BuildAlterTable(s.Table(), group)
		if err != nil {
			return fmt.Errorf("failed to build alter table %s: %w", s.Table(), err)
		}
		for _, stmt := range at.Statements() {
			if err := e.execute(ctx, res, stmt, false); err != nil {
				return err
			}
		}
	}
	res.Action = Altered
	return nil
}

// reconcileForeignKeys adds the missing constraints of belongsTo
// relations. A column already carrying the primary key constraint is a key
// column and is left alone.
func (e *Engine) reconcileForeignKeys(ctx context.Context, s *schema.Schema, res *TableResult) error {
	table := s.Table()

	fkb, ok := e.builder.(generator.ForeignKeyBuilder)
	if !ok {
		e.log.Debug("dialect cannot add foreign keys", "table", table, "dialect", e.builder.Dialect())
		return nil
	}

	var belongsTo []string
	relations := s.Relations()
	for _, accessor := range s.Accessors() {
		if relations[accessor].Kind == schema.BelongsTo {
			belongsTo = append(belongsTo, accessor)
		}
	}
	if len(belongsTo) == 0 {
		return nil
	}

	refs, ok, err := e.parser.QueryReferences(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Debug("catalog does not report constraints", "table", table)
		return nil
	}

	for _, accessor := range belongsTo {
		rel := relations[accessor]
		if e.resolver == nil {
			return fmt.Errorf("failed to resolve relation %s.%s: %w", table, accessor, schema.ErrSchemaNotFound)
		}
		foreign, err := e.resolver.Resolve(rel.Foreign)
		if err != nil {
			return fmt.Errorf("failed to resolve relation %s.%s: %w", table, accessor, err)
		}
		if foreign.ID() == s.ID() {
			continue
		}
		if col, ok := s.Column(rel.SelfColumn); ok && col.Primary {
			continue
		}

		if ref, exists := refs[rel.SelfColumn]; exists {
			if ref.Name == database.PrimaryConstraint {
				e.log.Info("skipping foreign key on key column", "table", table, "column", rel.SelfColumn)
			} else {
				e.log.Debug("foreign key exists", "table", table, "column", rel.SelfColumn, "constraint", ref.Name)
			}
			continue
		}

		fk := generator.ForeignKey{
			Name:             generator.ForeignKeyName(table, rel.SelfColumn),
			Column:           rel.SelfColumn,
			ReferencedTable:  foreign.Table(),
			ReferencedColumn: rel.ForeignColumn,
		}
		at, err := fkb.BuildForeignKey(table, fk)
		if err != nil {
			return fmt.Errorf("failed to build foreign key %s: %w", fk.Name, err)
		}
		for _, stmt := range at.Statements() {
			if err := e.execute(ctx, res, stmt, true); err != nil {
				return err
			}
		}
		if res.Action == Unchanged {
			res.Action = Altered
		}
		e.log.Info("added foreign key", "table", table, "constraint", fk.Name, "references", foreign.Table())
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, res *TableResult, stmt string, constraint bool) error {
	e.log.Debug("executing statement", "table", res.Table, "sql", stmt)
	if err := e.exec.Exec(ctx, stmt); err != nil {
		return &ExecError{
			Table:     res.Table,
			Statement: stmt,
			Err:       err,
			conflict:  constraint && database.IsConstraintConflict(err),
		}
	}
	res.Statements = append(res.Statements, stmt)
	return nil
}

func (e *Engine) transition(res *TableResult, to State) {
	e.log.Debug("table state", "table", res.Table, "from", res.State, "to", to)
	res.State = to
}
