// Package tableparser reconstructs schemas from live catalog metadata.
package tableparser

import (
	"context"
	"errors"
	"fmt"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/logger"
	"github.com/koba/dbsync/internal/schema"
)

// ErrTableNotFound is returned when the catalog reports no columns for a
// table.
var ErrTableNotFound = errors.New("table not found")

// Parser reads table structure from a catalog. It never writes.
type Parser struct {
	catalog database.Catalog
}

// New creates a parser over catalog.
func New(catalog database.Catalog) *Parser {
	return &Parser{catalog: catalog}
}

// ListTables returns the tables known to the catalog.
func (p *Parser) ListTables(ctx context.Context) ([]string, error) {
	tables, err := p.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// ReverseTableSchema builds the discovered schema of a table, with columns
// in catalog order.
func (p *Parser) ReverseTableSchema(ctx context.Context, table string) (*schema.Schema, error) {
	columns, err := p.catalog.GetColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	def := schema.Definition{Table: table, Columns: make([]schema.ColumnDef, 0, len(columns))}
	for _, col := range columns {
		info, err := schema.ParseTypeInfo(col.RawType)
		if err != nil {
			return nil, fmt.Errorf("failed to parse column %s.%s: %w", table, col.Name, err)
		}
		def.Columns = append(def.Columns, schema.ColumnDef{
			Name:          col.Name,
			Type:          col.RawType,
			Required:      !col.Nullable,
			Primary:       col.IsPrimary,
			AutoIncrement: col.IsAutoIncrement,
			Unique:        col.IsUnique && !col.IsPrimary,
			Default:       ParseDefault(col.Default, info.Kind, col.IsAutoIncrement),
		})
	}

	s, err := schema.Build(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema for table %s: %w", table, err)
	}
	logger.Get().Debug("reversed table schema", "table", table, "columns", len(columns))
	return s, nil
}

// QueryReferences returns the constraints per column of a table. ok is
// false when the catalog cannot report constraints.
func (p *Parser) QueryReferences(ctx context.Context, table string) (refs map[string]database.ConstraintRef, ok bool, err error) {
	rc, ok := p.catalog.(database.ReferenceCatalog)
	if !ok {
		return nil, false, nil
	}
	refs, err = rc.GetForeignKeys(ctx, table)
	if err != nil {
		return nil, true, fmt.Errorf("failed to get constraints for table %s: %w", table, err)
	}
	return refs, true, nil
}
