package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/block/litemove/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
	os.Exit(m.Run())
}

func openPitchfork(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.Context(), testutils.NewPitchforkFile(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(t.Context(), filepath.Join(t.TempDir(), "nope.sqlite"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = Open(t.Context(), t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestTablesAndSchemas(t *testing.T) {
	db := openPitchfork(t)

	tables, err := db.Tables(t.Context())
	require.NoError(t, err)
	assert.Equal(t, testutils.PitchforkTables, tables)

	schemas, err := db.Schemas(t.Context())
	require.NoError(t, err)
	require.Len(t, schemas, len(testutils.PitchforkTables))
	assert.Equal(t, "CREATE TABLE years (reviewid INTEGER, year INTEGER)", schemas[4])

	version, err := db.Version(t.Context())
	require.NoError(t, err)
	assert.NotEmpty(t, version)
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestSchemasEmptyDatabase(t *testing.T) {
	path := testutils.NewSQLiteFile(t, "CREATE TABLE scratch (a INTEGER)", "DROP TABLE scratch")
	db, err := Open(t.Context(), path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Schemas(t.Context())
	assert.ErrorIs(t, err, ErrMissingSchema)
	_, err = db.Tables(t.Context())
	assert.ErrorIs(t, err, ErrMissingSchema)
}

func TestReadTable(t *testing.T) {
	db := openPitchfork(t)

	years, err := db.ReadTable(t.Context(), "years")
	require.NoError(t, err)
	assert.Equal(t, "years", years.Name)
	assert.Equal(t, []string{"reviewid", "year"}, years.Columns)
	assert.Equal(t, []string{"INTEGER", "INTEGER"}, years.DeclTypes)
	require.Equal(t, 4, years.Len())

	first := years.Rows[0]
	assert.Equal(t, []any{int64(22703), int64(1998)}, first.Values())
	v, ok := first.Get("year")
	assert.True(t, ok)
	assert.Equal(t, int64(1998), v)
	_, ok = first.Get("genre")
	assert.False(t, ok)

	last := years.Rows[3]
	v, _ = last.Get("year")
	assert.Nil(t, v)

	reviews, err := db.ReadTable(t.Context(), "reviews")
	require.NoError(t, err)
	assert.Len(t, reviews.Columns, 13)
	score, _ := reviews.Rows[0].Get("score")
	assert.Equal(t, 9.3, score) //nolint:testifylint
	title, _ := reviews.Rows[0].Get("title")
	assert.Equal(t, "mezzanine", title)

	_, err = db.ReadTable(t.Context(), "tracks")
	assert.ErrorIs(t, err, ErrMissingSchema)
}

func TestReadQuery(t *testing.T) {
	db := openPitchfork(t)
	tbl, err := db.ReadQuery(t.Context(), "SELECT * FROM years WHERE year IS NULL")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Empty(t, tbl.Name)

	tbl, err = db.ReadQuery(t.Context(), "SELECT reviewid FROM years WHERE year = ?", 2016)
	require.NoError(t, err)
	col, err := tbl.Column("reviewid")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(22721), int64(22659)}, col)
}

func TestTableHelpers(t *testing.T) {
	cols := []string{"reviewid", "genre"}
	tbl := &Table{
		Name:    "genres",
		Columns: cols,
		Rows: []Row{
			NewRow(cols, int64(1), "rock"),
			NewRow(cols, int64(2), nil),
			NewRow(cols, int64(3), "jazz"),
		},
	}
	nulls := tbl.Filter(func(r Row) bool {
		v, _ := r.Get("genre")
		return v == nil
	})
	assert.Equal(t, 1, nulls.Len())
	assert.Equal(t, "genres", nulls.Name)
	assert.Equal(t, 3, tbl.Len())

	assert.Equal(t, 2, tbl.Head(2).Len())
	assert.Equal(t, 3, tbl.Head(10).Len())
	assert.Equal(t, 0, tbl.Head(-1).Len())

	_, err := tbl.Column("label")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	// Values returns a copy.
	vals := tbl.Rows[0].Values()
	vals[1] = "pop"
	v, _ := tbl.Rows[0].Get("genre")
	assert.Equal(t, "rock", v)
}
