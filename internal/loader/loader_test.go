package loader

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/dbsync/internal/schema"
)

const authorsYAML = `
table: authors
columns:
  - name: id
    type: int
    primary: true
    auto_increment: true
  - name: name
    type: varchar(128)
    required: true
    default: anonymous
  - name: rating
    type: double
    default: 4.5
  - name: active
    type: bool
    default: true
  - name: created_at
    type: timestamp
    default: {raw: CURRENT_TIMESTAMP}
  - name: token
    type: varchar(36)
    default: {computed: uuid}
  - name: note
    type: text
    default: null
`

const booksYAML = `
table: books
columns:
  - name: isbn
    type: varchar(13)
    primary: true
  - name: author_id
    type: int
relations:
  author:
    kind: belongsTo
    self_column: author_id
    foreign: authors
    foreign_column: id
---
id: book_covers
table: covers
columns:
  - name: isbn
    type: varchar(13)
    primary: true
`

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestLoadFile(t *testing.T) {
	l := New(newFs(t, map[string]string{"schema/01_authors.yaml": authorsYAML}))

	schemas, err := l.LoadFile("schema/01_authors.yaml")
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "authors", s.Table())
	assert.Equal(t, []string{"id", "name", "rating", "active", "created_at", "token", "note"}, s.ColumnNames())
	assert.Equal(t, "schema/01_authors.yaml", l.Source("authors"))

	id, _ := s.Column("id")
	assert.True(t, id.Primary)
	assert.True(t, id.AutoIncrement)
	assert.True(t, id.Required)

	name, _ := s.Column("name")
	assert.Equal(t, schema.Literal("anonymous"), name.Default)

	rating, _ := s.Column("rating")
	assert.Equal(t, schema.Literal(4.5), rating.Default)

	active, _ := s.Column("active")
	assert.Equal(t, schema.Literal(true), active.Default)

	created, _ := s.Column("created_at")
	assert.Equal(t, schema.Raw("CURRENT_TIMESTAMP"), created.Default)

	token, _ := s.Column("token")
	assert.Equal(t, schema.ComputedDefault, token.Default.Kind)
	assert.Equal(t, "uuid", token.Default.Name)
	generated, ok := token.Default.Func().(string)
	require.True(t, ok)
	_, err = uuid.Parse(generated)
	assert.NoError(t, err)

	note, _ := s.Column("note")
	assert.True(t, note.Default.IsZero())
}

func TestLoadDirectory(t *testing.T) {
	fs := newFs(t, map[string]string{
		"schema/02_books.yml":    booksYAML,
		"schema/01_authors.yaml": authorsYAML,
		"schema/README.md":       "not a schema",
	})

	schemas, err := New(fs).Load("schema")
	require.NoError(t, err)

	var ids []string
	for _, s := range schemas {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"authors", "books", "book_covers"}, ids)

	rel := schemas[1].Relations()["author"]
	assert.Equal(t, schema.BelongsTo, rel.Kind)
	assert.Equal(t, schema.SchemaRef("authors"), rel.Foreign)

	registry, err := schema.NewRegistry(schemas...)
	require.NoError(t, err)
	foreign, err := registry.Resolve(rel.Foreign)
	require.NoError(t, err)
	assert.Equal(t, "authors", foreign.Table())
}

func TestRegisterGenerator(t *testing.T) {
	fs := newFs(t, map[string]string{"t.yaml": `
table: t
columns:
  - name: seq
    type: int
    default: {computed: counter}
`})
	l := New(fs)

	_, err := l.LoadFile("t.yaml")
	assert.ErrorIs(t, err, ErrUnknownGenerator)

	l.RegisterGenerator("counter", func() any { return 7 })
	schemas, err := l.LoadFile("t.yaml")
	require.NoError(t, err)
	col, _ := schemas[0].Column("seq")
	assert.Equal(t, 7, col.Default.Func())
}

func TestLoadErrors(t *testing.T) {
	fs := newFs(t, map[string]string{
		"unknown.yaml":   "table: t\ncolumns:\n  - name: c\n    type: geometry_blobby(\n",
		"duplicate.yaml": "table: t\ncolumns:\n  - {name: c, type: int}\n  - {name: c, type: int}\n",
		"badtype.yaml":   "table: t\ncolumns:\n  - {name: c, type: enum}\n",
	})
	l := New(fs)

	_, err := l.LoadFile("unknown.yaml")
	assert.Error(t, err)

	_, err = l.LoadFile("duplicate.yaml")
	assert.ErrorIs(t, err, schema.ErrDuplicateColumn)

	_, err = l.LoadFile("badtype.yaml")
	assert.ErrorIs(t, err, schema.ErrUnknownType)

	_, err = l.Load("missing")
	assert.Error(t, err)
}
