// Package testutils contains some common utilities used exclusively
// by the test suite.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func DSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return "litemove:litemove@tcp(127.0.0.1:3306)/test"
	}
	return dsn
}

// DSNForDatabase returns a DSN for a specific database name
func DSNForDatabase(dbName string) string {
	cfg, err := mysql.ParseDSN(DSN())
	if err != nil {
		return DSN()
	}
	cfg.DBName = dbName
	return cfg.FormatDSN()
}

// RequireMySQL skips the test when no MySQL server is reachable at DSN().
func RequireMySQL(t *testing.T) {
	t.Helper()
	db, err := sql.Open("mysql", DSN())
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("MySQL is not reachable at MYSQL_DSN: %v", err)
	}
}

// CreateUniqueTestDatabase creates a unique database for a test and drops it
// on cleanup. It returns the database name.
func CreateUniqueTestDatabase(t *testing.T) string {
	t.Helper()
	RequireMySQL(t)

	dbName := fmt.Sprintf("t_%s_%d",
		strings.NewReplacer("/", "_", "-", "_").Replace(strings.ToLower(t.Name())),
		os.Getpid())
	if len(dbName) > 64 {
		dbName = dbName[:64]
	}
	rootDSN := DSNForDatabase("")

	db, err := sql.Open("mysql", rootDSN)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	_, err = db.ExecContext(t.Context(), "CREATE DATABASE IF NOT EXISTS "+dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		db, err := sql.Open("mysql", rootDSN)
		assert.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()
		_, err = db.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+dbName)
		assert.NoError(t, err)
	})
	return dbName
}

// RunSQLInDatabase runs SQL in a specific database
func RunSQLInDatabase(t *testing.T, dbName, stmt string) {
	t.Helper()
	db, err := sql.Open("mysql", DSNForDatabase(dbName))
	assert.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	_, err = db.ExecContext(t.Context(), stmt)
	assert.NoError(t, err)
}

// NewSQLiteFile creates a SQLite database in a temporary directory, runs
// stmts against it and returns its path.
func NewSQLiteFile(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), uuid.NewString()+".sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	for _, stmt := range stmts {
		_, err = db.ExecContext(t.Context(), stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

// PitchforkStatements creates a small copy of the Pitchfork reviews
// dataset, with the column types the real file uses.
var PitchforkStatements = []string{
	`CREATE TABLE reviews (
    reviewid INTEGER,
    title TEXT,
    artist TEXT,
    url TEXT,
    score REAL,
    best_new_music INTEGER,
    author TEXT,
    author_type TEXT,
    pub_date TEXT,
    pub_weekday INTEGER,
    pub_day INTEGER,
    pub_month INTEGER,
    pub_year INTEGER)`,
	`CREATE TABLE artists (reviewid INTEGER, artist TEXT)`,
	`CREATE TABLE genres (reviewid INTEGER, genre TEXT)`,
	`CREATE TABLE labels (reviewid INTEGER, label TEXT)`,
	`CREATE TABLE years (reviewid INTEGER, year INTEGER)`,
	`CREATE TABLE content (reviewid INTEGER, content TEXT)`,
	`INSERT INTO reviews VALUES
    (22703, 'mezzanine', 'massive attack', 'http://pitchfork.com/reviews/albums/22703-mezzanine/', 9.3, 0, 'nate patrin', 'contributor', '2017-01-08', 6, 8, 1, 2017),
    (22721, 'prelapsarian', 'krallice', 'http://pitchfork.com/reviews/albums/22721-prelapsarian/', 7.9, 0, 'zoe camp', 'contributor', '2017-01-07', 5, 7, 1, 2017),
    (22659, 'all of them naturals', 'uranium club', 'http://pitchfork.com/reviews/albums/22659-all-of-them-naturals/', 7.3, 0, 'david glickman', NULL, '2017-01-07', 5, 7, 1, 2017)`,
	`INSERT INTO artists VALUES (22703, 'massive attack'), (22721, 'krallice'), (22659, 'uranium club')`,
	`INSERT INTO genres VALUES (22703, 'electronic'), (22721, 'metal'), (22659, 'rock'), (22659, NULL)`,
	`INSERT INTO labels VALUES (22703, 'virgin'), (22721, 'hathenter'), (22659, 'static shock'), (22659, 'fashionable idiots')`,
	`INSERT INTO years VALUES (22703, 1998), (22721, 2016), (22659, 2016), (22659, NULL)`,
	`INSERT INTO content VALUES (22703, 'Trip-hop eventually became a ’90s punchline.'), (22721, 'Eight years, five albums.'), (22659, 'Minneapolis''s Uranium Club seem to be having fun.')`,
}

// PitchforkTables is the table order of PitchforkStatements.
var PitchforkTables = []string{"reviews", "artists", "genres", "labels", "years", "content"}

// NewPitchforkFile creates a SQLite file populated with PitchforkStatements.
func NewPitchforkFile(t *testing.T) string {
	t.Helper()
	return NewSQLiteFile(t, PitchforkStatements...)
}
