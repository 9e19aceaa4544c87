package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultKind tags the variant held by a Default.
type DefaultKind int

const (
	NoDefault DefaultKind = iota
	LiteralDefault
	RawDefault
	ComputedDefault
)

// Default is the default value of a column. Literal values are inflated to
// SQL literals by the DDL builder, raw expressions are emitted verbatim and
// computed defaults are produced by application code at insert time.
type Default struct {
	Kind  DefaultKind
	Value any
	Expr  string
	Name  string
	Func  func() any
}

// Literal returns a default holding a plain value.
func Literal(v any) Default { return Default{Kind: LiteralDefault, Value: v} }

// Raw returns a default holding a SQL expression such as CURRENT_TIMESTAMP.
func Raw(expr string) Default { return Default{Kind: RawDefault, Expr: expr} }

// Computed returns a default generated by fn when a row is inserted.
func Computed(name string, fn func() any) Default {
	return Default{Kind: ComputedDefault, Name: name, Func: fn}
}

// IsZero reports whether the column has no default.
func (d Default) IsZero() bool { return d.Kind == NoDefault }

func (d Default) String() string {
	switch d.Kind {
	case LiteralDefault:
		return fmt.Sprintf("%v", d.Value)
	case RawDefault:
		return d.Expr
	case ComputedDefault:
		if d.Name != "" {
			return "<computed:" + d.Name + ">"
		}
		return "<computed>"
	}
	return ""
}

func (d Default) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case LiteralDefault:
		return json.Marshal(map[string]any{"literal": d.Value})
	case RawDefault:
		return json.Marshal(map[string]any{"raw": d.Expr})
	case ComputedDefault:
		return json.Marshal(map[string]any{"computed": d.Name})
	}
	return []byte("null"), nil
}

// Column represents a table column
type Column struct {
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Kind          SemanticKind `json:"kind"`
	Length        int          `json:"length,omitempty"`
	Precision     int          `json:"precision,omitempty"`
	Unsigned      bool         `json:"unsigned,omitempty"`
	Required      bool         `json:"required"`
	Primary       bool         `json:"primary"`
	AutoIncrement bool         `json:"auto_increment"`
	Unique        bool         `json:"unique"`
	Default       Default      `json:"default"`
}

// TypeString renders the column type, e.g. "decimal(10,2)".
func (c Column) TypeString() string {
	return formatType(c.Type, c.Length, c.Precision, c.Unsigned)
}

// RelationKind represents the kind of relationship between two schemas
type RelationKind string

const (
	BelongsTo RelationKind = "belongsTo"
	HasOne    RelationKind = "hasOne"
	HasMany   RelationKind = "hasMany"
)

// SchemaRef identifies a schema by ID. It is resolved through a Resolver
// when needed, so schemas may reference each other in any order.
type SchemaRef string

// Relation represents a relationship from one schema column to another
// schema's column.
type Relation struct {
	Kind          RelationKind `json:"kind"`
	SelfColumn    string       `json:"self_column"`
	Foreign       SchemaRef    `json:"foreign"`
	ForeignColumn string       `json:"foreign_column"`
}

// Schema is a table definition: either declared by the application or
// discovered from a live database. It is not modified after construction.
type Schema struct {
	id        string
	table     string
	columns   []Column
	index     map[string]int
	relations map[string]Relation
}

// ID returns the identifier used by SchemaRef lookups.
func (s *Schema) ID() string { return s.id }

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// Columns returns the columns in declaration (or discovery) order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// ColumnNames returns the column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Relations returns a copy of the relations keyed by accessor.
func (s *Schema) Relations() map[string]Relation {
	out := make(map[string]Relation, len(s.relations))
	for k, v := range s.relations {
		out[k] = v
	}
	return out
}

// Accessors returns relation accessors sorted by name.
func (s *Schema) Accessors() []string {
	keys := make([]string, 0, len(s.relations))
	for k := range s.relations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrimaryKey returns the names of the primary key columns.
func (s *Schema) PrimaryKey() []string {
	var pk []string
	for _, c := range s.columns {
		if c.Primary {
			pk = append(pk, c.Name)
		}
	}
	return pk
}
