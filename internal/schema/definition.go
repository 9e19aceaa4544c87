package schema

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDefinition = errors.New("invalid schema definition")
	ErrDuplicateColumn   = errors.New("duplicate column")
)

// ColumnDef describes a column before its type has been parsed.
type ColumnDef struct {
	Name          string
	Type          string
	Required      bool
	Primary       bool
	AutoIncrement bool
	Unique        bool
	Default       Default
}

// RelationDef describes a relation to another schema.
type RelationDef struct {
	Kind          RelationKind
	SelfColumn    string
	Foreign       SchemaRef
	ForeignColumn string
}

// Definition is the structured input of Build.
type Definition struct {
	ID        string
	Table     string
	Columns   []ColumnDef
	Relations map[string]RelationDef
}

// Build validates a definition and returns the schema it describes.
// Primary key columns are always required.
func Build(def Definition) (*Schema, error) {
	if def.Table == "" {
		return nil, fmt.Errorf("%w: table name is empty", ErrInvalidDefinition)
	}

	s := &Schema{
		id:        def.ID,
		table:     def.Table,
		columns:   make([]Column, 0, len(def.Columns)),
		index:     make(map[string]int, len(def.Columns)),
		relations: make(map[string]Relation, len(def.Relations)),
	}
	if s.id == "" {
		s.id = def.Table
	}

	for _, cd := range def.Columns {
		if cd.Name == "" {
			return nil, fmt.Errorf("%w: table %s has a column without a name", ErrInvalidDefinition, def.Table)
		}
		if _, exists := s.index[cd.Name]; exists {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, def.Table, cd.Name)
		}
		info, err := ParseTypeInfo(cd.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to parse type of %s.%s: %w", def.Table, cd.Name, err)
		}
		s.index[cd.Name] = len(s.columns)
		s.columns = append(s.columns, Column{
			Name:          cd.Name,
			Type:          info.Type,
			Kind:          info.Kind,
			Length:        info.Length,
			Precision:     info.Precision,
			Unsigned:      info.Unsigned,
			Required:      cd.Required || cd.Primary,
			Primary:       cd.Primary,
			AutoIncrement: cd.AutoIncrement,
			Unique:        cd.Unique,
			Default:       cd.Default,
		})
	}

	for accessor, rd := range def.Relations {
		switch rd.Kind {
		case BelongsTo, HasOne, HasMany:
		default:
			return nil, fmt.Errorf("%w: relation %s.%s has unknown kind %q", ErrInvalidDefinition, def.Table, accessor, rd.Kind)
		}
		if _, ok := s.index[rd.SelfColumn]; !ok {
			return nil, fmt.Errorf("%w: relation %s.%s uses undeclared column %q", ErrInvalidDefinition, def.Table, accessor, rd.SelfColumn)
		}
		if rd.Foreign == "" {
			return nil, fmt.Errorf("%w: relation %s.%s has no foreign schema", ErrInvalidDefinition, def.Table, accessor)
		}
		s.relations[accessor] = Relation{
			Kind:          rd.Kind,
			SelfColumn:    rd.SelfColumn,
			Foreign:       rd.Foreign,
			ForeignColumn: rd.ForeignColumn,
		}
	}

	return s, nil
}

// MustBuild is like Build but panics on error. It is meant for schemas
// declared as package-level variables.
func MustBuild(def Definition) *Schema {
	s, err := Build(def)
	if err != nil {
		panic(err)
	}
	return s
}
