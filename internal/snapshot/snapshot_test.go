package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/tableparser"
)

func liveDatabase(t *testing.T) *database.SQLite {
	t.Helper()
	ctx := context.Background()

	db := database.NewSQLite(database.Config{Path: ":memory:"})
	require.NoError(t, db.Connect(ctx))
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE authors (
			id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			name varchar(128) NOT NULL DEFAULT 'anon',
			email varchar(255) UNIQUE
		)`,
		`CREATE TABLE books (
			isbn varchar(13) NOT NULL PRIMARY KEY,
			author_id int REFERENCES authors(id),
			published timestamp DEFAULT CURRENT_TIMESTAMP
		)`,
	} {
		require.NoError(t, db.Exec(ctx, stmt))
	}
	return db
}

func TestCreateAndOpen(t *testing.T) {
	ctx := context.Background()
	live := liveDatabase(t)
	path := filepath.Join(t.TempDir(), "nested", "before.db")

	require.NoError(t, Create(ctx, live, nil, path))

	snap, err := Open(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, database.DialectSQLite, snap.Dialect())
	assert.NotEmpty(t, snap.CreatedAt())

	tables, err := snap.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "books"}, tables)

	for _, table := range tables {
		want, err := live.GetColumns(ctx, table)
		require.NoError(t, err)
		got, err := snap.GetColumns(ctx, table)
		require.NoError(t, err)
		if d := cmp.Diff(want, got); d != "" {
			t.Errorf("columns of %s mismatch (-live +snapshot):\n%s", table, d)
		}

		wantRefs, err := live.GetForeignKeys(ctx, table)
		require.NoError(t, err)
		gotRefs, err := snap.GetForeignKeys(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, wantRefs, gotRefs)
	}
}

func TestSnapshotReversesLikeLiveCatalog(t *testing.T) {
	ctx := context.Background()
	live := liveDatabase(t)
	path := filepath.Join(t.TempDir(), "snap.db")
	require.NoError(t, Create(ctx, live, []string{"books"}, path))

	snap, err := Open(ctx, path)
	require.NoError(t, err)

	fromLive, err := tableparser.New(live).ReverseTableSchema(ctx, "books")
	require.NoError(t, err)
	fromSnapshot, err := tableparser.New(snap).ReverseTableSchema(ctx, "books")
	require.NoError(t, err)
	assert.Empty(t, diff.Compare(fromLive, fromSnapshot))

	_, err = tableparser.New(snap).ReverseTableSchema(ctx, "authors")
	assert.ErrorIs(t, err, tableparser.ErrTableNotFound)

	refs, ok, err := tableparser.New(snap).QueryReferences(ctx, "books")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "authors", refs["author_id"].ReferencedTable)
}

func TestCreateReplacesExistingFile(t *testing.T) {
	ctx := context.Background()
	live := liveDatabase(t)
	path := filepath.Join(t.TempDir(), "snap.db")

	require.NoError(t, Create(ctx, live, []string{"authors"}, path))
	require.NoError(t, Create(ctx, live, []string{"books"}, path))

	snap, err := Open(ctx, path)
	require.NoError(t, err)
	tables, err := snap.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"books"}, tables)
}

func TestCreateUnknownTable(t *testing.T) {
	err := Create(context.Background(), liveDatabase(t), []string{"ghost"}, filepath.Join(t.TempDir(), "snap.db"))
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
