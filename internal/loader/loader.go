// Package loader reads declared schemas from YAML files.
//
// A file holds one or more YAML documents, each describing a table:
//
//	table: books
//	columns:
//	  - name: id
//	    type: int
//	    primary: true
//	    auto_increment: true
//	  - name: created_at
//	    type: timestamp
//	    default: {raw: CURRENT_TIMESTAMP}
//	  - name: token
//	    type: varchar(36)
//	    default: {computed: uuid}
//	relations:
//	  author: {kind: belongsTo, self_column: author_id, foreign: authors, foreign_column: id}
package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/koba/dbsync/internal/schema"
)

// ErrUnknownGenerator is returned for a computed default without a
// registered generator.
var ErrUnknownGenerator = errors.New("unknown computed default generator")

type fileSchema struct {
	ID        string                  `yaml:"id"`
	Table     string                  `yaml:"table"`
	Columns   []fileColumn            `yaml:"columns"`
	Relations map[string]fileRelation `yaml:"relations"`
}

type fileColumn struct {
	Name          string       `yaml:"name"`
	Type          string       `yaml:"type"`
	Required      bool         `yaml:"required"`
	Primary       bool         `yaml:"primary"`
	AutoIncrement bool         `yaml:"auto_increment"`
	Unique        bool         `yaml:"unique"`
	Default       defaultValue `yaml:"default"`
}

type fileRelation struct {
	Kind          string `yaml:"kind"`
	SelfColumn    string `yaml:"self_column"`
	Foreign       string `yaml:"foreign"`
	ForeignColumn string `yaml:"foreign_column"`
}

// defaultValue is a scalar literal, {raw: expr} or {computed: name}.
type defaultValue struct {
	set      bool
	literal  any
	raw      string
	computed string
}

func (d *defaultValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return err
		}
		d.set, d.literal = true, v
		return nil
	case yaml.MappingNode:
		var m struct {
			Raw      *string `yaml:"raw"`
			Computed *string `yaml:"computed"`
			Literal  any     `yaml:"literal"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		switch {
		case m.Raw != nil:
			d.set, d.raw = true, *m.Raw
		case m.Computed != nil:
			d.set, d.computed = true, *m.Computed
		default:
			d.set, d.literal = true, m.Literal
		}
		return nil
	}
	return fmt.Errorf("line %d: default must be a scalar or a mapping", node.Line)
}

// Loader reads schema files from a filesystem.
type Loader struct {
	fs         afero.Fs
	generators map[string]func() any
	sources    map[string]string
}

// New creates a loader with the uuid and now generators registered.
func New(fs afero.Fs) *Loader {
	return &Loader{
		fs: fs,
		generators: map[string]func() any{
			"uuid": func() any { return uuid.NewString() },
			"now":  func() any { return time.Now().UTC() },
		},
		sources: make(map[string]string),
	}
}

// RegisterGenerator adds a generator usable as a computed default.
func (l *Loader) RegisterGenerator(name string, fn func() any) {
	l.generators[name] = fn
}

// Source returns the file a schema was loaded from.
func (l *Loader) Source(id string) string {
	return l.sources[id]
}

// Load reads every path in order. A directory contributes its .yaml and
// .yml files sorted by name, so parents can be ordered before children
// with file name prefixes.
func (l *Loader) Load(paths ...string) ([]*schema.Schema, error) {
	var schemas []*schema.Schema
	for _, path := range paths {
		files, err := l.expand(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			loaded, err := l.LoadFile(file)
			if err != nil {
				return nil, err
			}
			schemas = append(schemas, loaded...)
		}
	}
	return schemas, nil
}

// LoadFile reads all schema documents of one file.
func (l *Loader) LoadFile(path string) ([]*schema.Schema, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	var schemas []*schema.Schema
	dec := yaml.NewDecoder(f)
	for {
		var fsch fileSchema
		err := dec.Decode(&fsch)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if fsch.Table == "" && len(fsch.Columns) == 0 {
			continue
		}

		s, err := l.build(fsch)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		l.sources[s.ID()] = path
		schemas = append(schemas, s)
	}
	return schemas, nil
}

func (l *Loader) build(fsch fileSchema) (*schema.Schema, error) {
	def := schema.Definition{ID: fsch.ID, Table: fsch.Table}

	for _, fc := range fsch.Columns {
		d, err := l.toDefault(fc.Default)
		if err != nil {
			return nil, fmt.Errorf("column %s.%s: %w", fsch.Table, fc.Name, err)
		}
		def.Columns = append(def.Columns, schema.ColumnDef{
			Name:          fc.Name,
			Type:          fc.Type,
			Required:      fc.Required,
			Primary:       fc.Primary,
			AutoIncrement: fc.AutoIncrement,
			Unique:        fc.Unique,
			Default:       d,
		})
	}

	if len(fsch.Relations) > 0 {
		def.Relations = make(map[string]schema.RelationDef, len(fsch.Relations))
		for accessor, fr := range fsch.Relations {
			def.Relations[accessor] = schema.RelationDef{
				Kind:          schema.RelationKind(fr.Kind),
				SelfColumn:    fr.SelfColumn,
				Foreign:       schema.SchemaRef(fr.Foreign),
				ForeignColumn: fr.ForeignColumn,
			}
		}
	}

	return schema.Build(def)
}

func (l *Loader) toDefault(d defaultValue) (schema.Default, error) {
	switch {
	case !d.set:
		return schema.Default{}, nil
	case d.raw != "":
		return schema.Raw(d.raw), nil
	case d.computed != "":
		fn, ok := l.generators[d.computed]
		if !ok {
			return schema.Default{}, fmt.Errorf("%w: %s", ErrUnknownGenerator, d.computed)
		}
		return schema.Computed(d.computed, fn), nil
	case d.literal == nil:
		return schema.Default{}, nil
	}
	return schema.Literal(d.literal), nil
}

func (l *Loader) expand(path string) ([]string, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat schema path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := afero.ReadDir(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
