// Package source reads whole tables out of a SQLite database file.
// Tables are loaded fully into memory; there is no streaming.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/block/litemove/pkg/utils"
	_ "modernc.org/sqlite"
)

const pingTimeout = 5 * time.Second

// ErrMissingSchema is returned when a table, or any table at all,
// can not be found in the source database.
var ErrMissingSchema = errors.New("missing schema")

// DB is a read-only handle on a SQLite database file.
type DB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens the SQLite file at path read-only and pings it.
// A path that does not exist is an error matching fs.ErrNotExist; SQLite
// would otherwise create an empty database there.
func Open(ctx context.Context, path string) (*DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: database file isn't found %s: %w", abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("sqlite: %s is a directory", abs)
	}
	db, err := sql.Open("sqlite", "file:"+abs+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		utils.ErrInErr(db.Close())
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &DB{db: db, path: abs, logger: slog.Default()}, nil
}

// SetLogger sets the logger used for diagnostics.
func (d *DB) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// Path returns the absolute path of the database file.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Version returns the SQLite library version.
func (d *DB) Version(ctx context.Context) (string, error) {
	var version string
	if err := d.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// Tables returns the user table names in creation order.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	return d.masterColumn(ctx, "name")
}

// Schemas returns the CREATE TABLE statement of every user table in
// creation order.
func (d *DB) Schemas(ctx context.Context) ([]string, error) {
	return d.masterColumn(ctx, "sql")
}

func (d *DB) masterColumn(ctx context.Context, col string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+col+" FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY rowid", "table")
	if err != nil {
		return nil, err
	}
	defer utils.CloseAndLog(rows)
	var out []string
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no tables found in %s", ErrMissingSchema, d.path)
	}
	return out, nil
}

// HasTable reports whether a table or view called name exists.
func (d *DB) HasTable(ctx context.Context, name string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReadTable loads every row of the named table.
func (d *DB) ReadTable(ctx context.Context, name string) (*Table, error) {
	ok, err := d.HasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %s does not exist in %s", ErrMissingSchema, name, d.path)
	}
	d.logger.Debug("querying source table", "table", name)
	tbl, err := d.ReadQuery(ctx, "SELECT * FROM "+utils.QuoteSQLiteIdentifier(name))
	if err != nil {
		return nil, err
	}
	tbl.Name = name
	return tbl, nil
}

// ReadQuery runs query and loads every row of the result.
func (d *DB) ReadQuery(ctx context.Context, query string, args ...any) (*Table, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer utils.CloseAndLog(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	declTypes := make([]string, len(types))
	for i, ct := range types {
		declTypes[i] = ct.DatabaseTypeName()
	}
	tbl := &Table{
		Columns:   columns,
		DeclTypes: declTypes,
	}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		tbl.Rows = append(tbl.Rows, NewRow(columns, values...))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tbl, nil
}
