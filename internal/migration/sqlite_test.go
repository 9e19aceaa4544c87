package migration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/generator"
	"github.com/koba/dbsync/internal/schema"
	"github.com/koba/dbsync/internal/tableparser"
)

func sqliteSchemas(extra ...schema.ColumnDef) []*schema.Schema {
	writers := schema.MustBuild(schema.Definition{
		Table: "writers",
		Columns: append([]schema.ColumnDef{
			{Name: "id", Type: "int", Primary: true, AutoIncrement: true},
			{Name: "name", Type: "varchar(128)", Required: true, Default: schema.Literal("anon")},
			{Name: "email", Type: "varchar(255)", Unique: true},
			{Name: "active", Type: "bool", Default: schema.Literal(true)},
			{Name: "score", Type: "double", Default: schema.Literal(0)},
			{Name: "created_at", Type: "timestamp", Default: schema.Raw("CURRENT_TIMESTAMP")},
			{Name: "token", Type: "varchar(36)", Default: schema.Computed("uuid", func() any { return "t" })},
		}, extra...),
	})
	novels := schema.MustBuild(schema.Definition{
		Table: "novels",
		Columns: []schema.ColumnDef{
			{Name: "isbn", Type: "varchar(13)", Primary: true},
			{Name: "writer_id", Type: "int", Required: true},
			{Name: "title", Type: "text"},
		},
		Relations: map[string]schema.RelationDef{
			"writer": {Kind: schema.BelongsTo, SelfColumn: "writer_id", Foreign: "writers", ForeignColumn: "id"},
		},
	})
	return []*schema.Schema{writers, novels}
}

func runSQLite(t *testing.T, db *database.SQLite, schemas []*schema.Schema, opts Options) *Report {
	t.Helper()
	registry, err := schema.NewRegistry(schemas...)
	require.NoError(t, err)

	engine := NewEngine(tableparser.New(db), generator.NewSQLiteBuilder(generator.WithResolver(registry)), db, registry, opts)
	report, err := engine.Run(context.Background(), schemas)
	require.NoError(t, err)
	return report
}

func TestSQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := database.NewSQLite(database.Config{Path: ":memory:"})
	require.NoError(t, db.Connect(ctx))
	t.Cleanup(func() { _ = db.Close() })

	first := runSQLite(t, db, sqliteSchemas(), Options{})
	require.Len(t, first.Tables, 2)
	assert.Equal(t, Created, first.Tables[0].Action)
	assert.Equal(t, Created, first.Tables[1].Action)
	assert.Len(t, first.Statements(), 2)

	tables, err := db.ListTables(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"writers", "novels"}, tables)

	second := runSQLite(t, db, sqliteSchemas(), Options{})
	assert.Empty(t, second.Statements(), "a converged database needs no statements")
	for _, r := range second.Tables {
		assert.Equal(t, Unchanged, r.Action, r.Table)
		assert.Equal(t, Reconciled, r.State, r.Table)
	}

	third := runSQLite(t, db, sqliteSchemas(schema.ColumnDef{Name: "bio", Type: "text"}), Options{})
	assert.Equal(t, []string{`ALTER TABLE "writers" ADD COLUMN "bio" text`}, third.Statements())

	// bio is no longer declared but kept
	fourth := runSQLite(t, db, sqliteSchemas(), Options{NoDropColumn: true})
	assert.Empty(t, fourth.Statements())

	fifth := runSQLite(t, db, sqliteSchemas(), Options{})
	require.Len(t, fifth.Statements(), 1)
	assert.True(t, strings.HasSuffix(fifth.Statements()[0], `DROP COLUMN "bio"`))

	assert.Empty(t, runSQLite(t, db, sqliteSchemas(), Options{}).Statements())
}
