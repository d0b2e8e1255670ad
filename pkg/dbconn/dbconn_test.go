package dbconn

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/block/litemove/pkg/normalize"
	"github.com/block/litemove/pkg/statement"
	"github.com/block/litemove/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
	os.Exit(m.Run())
}

func getVariable(trx *sql.Tx, name string) (string, error) {
	var value string
	err := trx.QueryRowContext(context.Background(), "SELECT @@SESSION."+name).Scan(&value)
	return value, err
}

// sqliteTarget opens a scratch SQLite database; InsertRows only needs
// database/sql so it is exercised without a MySQL server.
func sqliteTarget(t *testing.T, stmts ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", testutils.NewSQLiteFile(t, stmts...))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(t.Context(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestInsertRows(t *testing.T) {
	db := sqliteTarget(t, "CREATE TABLE years (reviewid INTEGER, year INTEGER)")
	ins, err := statement.NewInsert("years", []string{"reviewid", "year"})
	require.NoError(t, err)

	rows := []normalize.Params{
		{"reviewid": normalize.IntValue(22703), "year": normalize.IntValue(1998)},
		{"reviewid": normalize.IntValue(22659), "year": normalize.NullValue()},
	}
	n, err := InsertRows(t.Context(), db, ins, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, countRows(t, db, "years"))

	var year sql.NullInt64
	require.NoError(t, db.QueryRowContext(t.Context(), "SELECT year FROM years WHERE reviewid = 22659").Scan(&year))
	assert.False(t, year.Valid)

	n, err = InsertRows(t.Context(), db, ins, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertRowsRollsBack(t *testing.T) {
	db := sqliteTarget(t, "CREATE TABLE labels (reviewid INTEGER, label TEXT)")
	ins, err := statement.NewInsert("labels", []string{"reviewid", "label"})
	require.NoError(t, err)

	rows := []normalize.Params{
		{"reviewid": normalize.IntValue(1), "label": normalize.StringValue("virgin")},
		{"reviewid": normalize.IntValue(2)},
	}
	_, err = InsertRows(t.Context(), db, ins, rows)
	assert.ErrorIs(t, err, statement.ErrMissingParameter)
	assert.ErrorContains(t, err, "row 1")
	assert.Zero(t, countRows(t, db, "labels"))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = InsertRows(ctx, db, ins, rows[:1])
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, countRows(t, db, "labels"))
}

func TestSessionVariables(t *testing.T) {
	testutils.RequireMySQL(t)
	config := NewDBConfig()
	db, err := New(testutils.DSN(), config)
	require.NoError(t, err)
	defer db.Close()

	trx, err := db.BeginTx(t.Context(), nil)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, trx.Rollback())
	}()

	lockWaitTimeout, err := getVariable(trx, "lock_wait_timeout")
	assert.NoError(t, err)
	assert.Equal(t, strconv.Itoa(config.LockWaitTimeout), lockWaitTimeout)

	charset, err := getVariable(trx, "character_set_client")
	assert.NoError(t, err)
	assert.Equal(t, "utf8mb4", charset)
}

func TestTargetDiagnostics(t *testing.T) {
	dbName := testutils.CreateUniqueTestDatabase(t)
	testutils.RunSQLInDatabase(t, dbName, "CREATE TABLE genres (reviewid INT, genre CHAR(20)) ENGINE=InnoDB")
	testutils.RunSQLInDatabase(t, dbName, "CREATE TABLE artists (reviewid INT, artist CHAR(70)) ENGINE=InnoDB")

	db, err := New(testutils.DSNForDatabase(dbName), NewDBConfig())
	require.NoError(t, err)
	defer db.Close()

	tables, err := ShowTables(t.Context(), db)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"genres", "artists"}, tables)

	innodb, err := TablesByEngine(t.Context(), db, "InnoDB", dbName)
	require.NoError(t, err)
	assert.Equal(t, []string{"artists", "genres"}, innodb)

	packet, err := MaxAllowedPacket(t.Context(), db)
	require.NoError(t, err)
	assert.Positive(t, packet)

	version, err := ServerVersion(t.Context(), db)
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	require.NoError(t, Exec(t.Context(), db, "DROP TABLE IF EXISTS genres, artists"))
	tables, err = ShowTables(t.Context(), db)
	require.NoError(t, err)
	assert.Empty(t, tables)
}
