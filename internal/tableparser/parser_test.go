package tableparser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/schema"
)

// fakeCatalog serves fixed metadata and does not report constraints.
type fakeCatalog struct {
	tables  []string
	columns map[string][]database.ColumnInfo
	err     error
}

func (f *fakeCatalog) ListTables(context.Context) ([]string, error) { return f.tables, f.err }

func (f *fakeCatalog) GetColumns(_ context.Context, table string) ([]database.ColumnInfo, error) {
	return f.columns[table], f.err
}

type fakeReferenceCatalog struct {
	fakeCatalog
	refs map[string]database.ConstraintRef
}

func (f *fakeReferenceCatalog) GetForeignKeys(context.Context, string) (map[string]database.ConstraintRef, error) {
	return f.refs, f.err
}

func ptr(s string) *string { return &s }

func TestReverseTableSchema(t *testing.T) {
	catalog := &fakeCatalog{columns: map[string][]database.ColumnInfo{
		"users": {
			{Name: "id", RawType: "int(11) unsigned", IsPrimary: true, IsAutoIncrement: true},
			{Name: "email", RawType: "varchar(255)", IsUnique: true},
			{Name: "active", RawType: "tinyint(1)", Default: ptr("1")},
			{Name: "name", RawType: "character varying(64)", Default: ptr("'anon'::character varying")},
			{Name: "created_at", RawType: "timestamp", Default: ptr("CURRENT_TIMESTAMP")},
		},
	}}

	s, err := New(catalog).ReverseTableSchema(context.Background(), "users")
	require.NoError(t, err)

	assert.Equal(t, "users", s.Table())
	assert.Equal(t, "users", s.ID())
	assert.Equal(t, []string{"id", "email", "active", "name", "created_at"}, s.ColumnNames())

	id, _ := s.Column("id")
	assert.Equal(t, "int", id.Type)
	assert.Equal(t, 11, id.Length)
	assert.True(t, id.Unsigned)
	assert.True(t, id.Primary)
	assert.True(t, id.Required, "primary keys are required")
	assert.True(t, id.AutoIncrement)

	email, _ := s.Column("email")
	assert.True(t, email.Unique)
	assert.False(t, email.Required)

	active, _ := s.Column("active")
	assert.Equal(t, "bool", active.Type)
	assert.Equal(t, schema.Literal(true), active.Default)

	name, _ := s.Column("name")
	assert.Equal(t, "varchar", name.Type)
	assert.Equal(t, schema.Literal("anon"), name.Default)

	created, _ := s.Column("created_at")
	assert.Equal(t, schema.Raw("CURRENT_TIMESTAMP"), created.Default)
}

func TestReverseTableSchemaErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(&fakeCatalog{}).ReverseTableSchema(ctx, "ghost")
	assert.ErrorIs(t, err, ErrTableNotFound)

	unknown := &fakeCatalog{columns: map[string][]database.ColumnInfo{
		"shapes": {{Name: "kind", RawType: "enum('a','b')"}},
	}}
	_, err = New(unknown).ReverseTableSchema(ctx, "shapes")
	assert.ErrorIs(t, err, schema.ErrUnknownType)

	boom := errors.New("connection lost")
	_, err = New(&fakeCatalog{err: boom}).ReverseTableSchema(ctx, "users")
	assert.ErrorIs(t, err, boom)

	_, err = New(&fakeCatalog{err: boom}).ListTables(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestQueryReferences(t *testing.T) {
	ctx := context.Background()

	refs, ok, err := New(&fakeCatalog{}).QueryReferences(ctx, "books")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, refs)

	want := map[string]database.ConstraintRef{
		"author_id": {Name: "fk_books_author_id", ReferencedTable: "authors", ReferencedColumn: "id"},
	}
	refs, ok, err = New(&fakeReferenceCatalog{refs: want}).QueryReferences(ctx, "books")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, refs)
}

func TestReverseSQLiteTable(t *testing.T) {
	ctx := context.Background()
	db := database.NewSQLite(database.Config{Path: ":memory:"})
	require.NoError(t, db.Connect(ctx))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Exec(ctx, `CREATE TABLE authors (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		name varchar(128) NOT NULL DEFAULT 'it''s',
		score double DEFAULT 1.5,
		joined timestamp DEFAULT CURRENT_TIMESTAMP
	)`))

	p := New(db)
	tables, err := p.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"authors"}, tables)

	s, err := p.ReverseTableSchema(ctx, "authors")
	require.NoError(t, err)

	id, _ := s.Column("id")
	assert.Equal(t, "int", id.Type)
	assert.True(t, id.Primary)
	assert.True(t, id.AutoIncrement)

	name, _ := s.Column("name")
	assert.True(t, name.Required)
	assert.Equal(t, schema.Literal("it's"), name.Default)

	score, _ := s.Column("score")
	assert.Equal(t, schema.KindDouble, score.Kind)
	assert.Equal(t, schema.Literal(1.5), score.Default)

	joined, _ := s.Column("joined")
	assert.Equal(t, schema.Raw("CURRENT_TIMESTAMP"), joined.Default)

	refs, ok, err := p.QueryReferences(ctx, "authors")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, database.PrimaryConstraint, refs["id"].Name)
}

func TestParseDefault(t *testing.T) {
	tests := []struct {
		name    string
		raw     *string
		kind    schema.SemanticKind
		autoInc bool
		want    schema.Default
	}{
		{"absent", nil, schema.KindString, false, schema.Default{}},
		{"null", ptr("NULL"), schema.KindString, false, schema.Default{}},
		{"pg null cast", ptr("NULL::character varying"), schema.KindString, false, schema.Default{}},
		{"sequence", ptr("nextval('users_id_seq'::regclass)"), schema.KindInteger, true, schema.Default{}},
		{"quoted string", ptr("'it''s'"), schema.KindString, false, schema.Literal("it's")},
		{"unquoted mysql string", ptr("draft"), schema.KindString, false, schema.Literal("draft")},
		{"integer", ptr("42"), schema.KindInteger, false, schema.Literal(int64(42))},
		{"pg quoted negative", ptr("'-1'::integer"), schema.KindInteger, false, schema.Literal(int64(-1))},
		{"pg numeric cast", ptr("0.00::numeric(10,2)"), schema.KindDouble, false, schema.Literal(0.0)},
		{"pg boolean", ptr("true"), schema.KindBoolean, false, schema.Literal(true)},
		{"mysql bool", ptr("0"), schema.KindBoolean, false, schema.Literal(false)},
		{"keyword", ptr("CURRENT_TIMESTAMP"), schema.KindDateTime, false, schema.Raw("CURRENT_TIMESTAMP")},
		{"function", ptr("now()"), schema.KindDateTime, false, schema.Raw("now()")},
		{"quoted timestamp", ptr("'2024-01-01 00:00:00'::timestamp without time zone"), schema.KindDateTime, false, schema.Literal("2024-01-01 00:00:00")},
		{"mysql unquoted datetime", ptr("2020-01-01 00:00:00"), schema.KindDateTime, false, schema.Literal("2020-01-01 00:00:00")},
		{"mysql unquoted date", ptr("2020-01-01"), schema.KindDateTime, false, schema.Literal("2020-01-01")},
		{"mysql unquoted time", ptr("12:30:00"), schema.KindDateTime, false, schema.Literal("12:30:00")},
		{"unparsable datetime", ptr("soon"), schema.KindDateTime, false, schema.Raw("soon")},
		{"unparsable integer", ptr("abc"), schema.KindInteger, false, schema.Raw("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDefault(tt.raw, tt.kind, tt.autoInc))
		})
	}
}
