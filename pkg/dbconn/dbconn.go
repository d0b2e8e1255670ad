// Package dbconn contains a series of database-related utility functions
// for the MySQL target.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/block/litemove/pkg/normalize"
	"github.com/block/litemove/pkg/statement"
	"github.com/block/litemove/pkg/utils"
)

type DBConfig struct {
	LockWaitTimeout       int
	InnodbLockWaitTimeout int
	MaxOpenConnections    int
	InterpolateParams     bool
	// TLS Configuration
	TLSMode            string // DISABLED, PREFERRED, REQUIRED, VERIFY_CA, VERIFY_IDENTITY
	TLSCertificatePath string // Path to custom TLS certificate file
}

func NewDBConfig() *DBConfig {
	return &DBConfig{
		LockWaitTimeout:       30,
		InnodbLockWaitTimeout: 3,
		MaxOpenConnections:    4,
		InterpolateParams:     false,
		TLSMode:               "PREFERRED",
		TLSCertificatePath:    "",
	}
}

// Exec is like db.Exec but only returns an error.
// This makes it a little bit easier to use in error handling.
func Exec(ctx context.Context, db *sql.DB, stmt string, args ...any) error {
	_, err := db.ExecContext(ctx, stmt, args...)
	return err
}

// InsertRows inserts rows with the positional form of ins inside a single
// transaction. Any failure rolls the transaction back and nothing is
// written. It returns the number of rows affected.
func InsertRows(ctx context.Context, db *sql.DB, ins *statement.Insert, rows []normalize.Params) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	trx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	affected, err := insertInTrx(ctx, trx, ins, rows)
	if err != nil {
		utils.ErrInErr(trx.Rollback())
		return 0, err
	}
	if err := trx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

func insertInTrx(ctx context.Context, trx *sql.Tx, ins *statement.Insert, rows []normalize.Params) (int64, error) {
	stmt, err := trx.PrepareContext(ctx, ins.Positional())
	if err != nil {
		return 0, err
	}
	defer utils.CloseAndLog(stmt)
	var affected int64
	for n, params := range rows {
		args, err := ins.Args(params)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", n, err)
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", n, err)
		}
		// Some drivers can't report affected rows; that's fine.
		if count, errC := res.RowsAffected(); errC == nil {
			affected += count
		}
	}
	return affected, nil
}

// ShowTables returns the tables of the connection's current database.
func ShowTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryStrings(ctx, db, "SHOW TABLES")
}

// MaxAllowedPacket returns the server's max_allowed_packet in bytes.
func MaxAllowedPacket(ctx context.Context, db *sql.DB) (int64, error) {
	var size int64
	err := db.QueryRowContext(ctx, "SELECT @@max_allowed_packet").Scan(&size)
	return size, err
}

// TablesByEngine returns the tables of schema using engine, sorted by name.
func TablesByEngine(ctx context.Context, db *sql.DB, engine, schema string) ([]string, error) {
	return queryStrings(ctx, db,
		"SELECT TABLE_NAME FROM information_schema.TABLES WHERE ENGINE = ? AND TABLE_SCHEMA = ? ORDER BY TABLE_NAME",
		engine, schema)
}

// ServerVersion returns SELECT VERSION().
func ServerVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	return version, err
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer utils.CloseAndLog(rows)
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
