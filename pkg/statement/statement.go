// Package statement builds the parameterized INSERT statements used to copy
// rows, and parses the DDL that creates their target tables.
package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/block/litemove/pkg/normalize"
	"github.com/block/litemove/pkg/utils"
)

var (
	ErrInvalidColumnList = errors.New("invalid column list")
	ErrInvalidTableName  = errors.New("invalid table name")
	ErrMissingParameter  = errors.New("missing parameter")
)

// Row is a source row: an ordered set of column names and the raw value
// for each of them.
type Row interface {
	Columns() []string
	Values() []any
}

// Insert is a parameterized INSERT statement for a single table.
// Placeholders follow the column order.
type Insert struct {
	Table   string
	Columns []string
}

// NewInsert validates table and columns and returns an Insert.
// The column list must be non-empty, with no blank or repeated names.
func NewInsert(table string, columns []string) (*Insert, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrInvalidTableName
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns for table %s", ErrInvalidColumnList, table)
	}
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		if strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("%w: column %d of table %s is blank", ErrInvalidColumnList, i, table)
		}
		if _, ok := seen[col]; ok {
			return nil, fmt.Errorf("%w: column %s repeated in table %s", ErrInvalidColumnList, col, table)
		}
		seen[col] = struct{}{}
	}
	return &Insert{
		Table:   table,
		Columns: append([]string(nil), columns...),
	}, nil
}

// BuildInsertHeader returns the INSERT statement for table with one named
// placeholder per column, for example:
//
//	INSERT INTO reviews (reviewid, title) VALUES (:reviewid, :title)
func BuildInsertHeader(table string, columns []string) (string, error) {
	ins, err := NewInsert(table, columns)
	if err != nil {
		return "", err
	}
	return ins.Text(), nil
}

// Text returns the statement with named placeholders.
func (i *Insert) Text() string {
	named := make([]string, len(i.Columns))
	for n, col := range i.Columns {
		named[n] = ":" + col
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		i.Table,
		strings.Join(i.Columns, ", "),
		strings.Join(named, ", "),
	)
}

// Positional returns the statement with quoted identifiers and ?
// placeholders, which is the form the MySQL driver binds.
func (i *Insert) Positional() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		utils.QuoteIdentifier(i.Table),
		utils.QuoteIdentifiers(i.Columns),
		strings.TrimSuffix(strings.Repeat("?, ", len(i.Columns)), ", "),
	)
}

// Args orders params by column for the positional statement.
// Every column must have a parameter.
func (i *Insert) Args(params normalize.Params) ([]any, error) {
	args := make([]any, len(i.Columns))
	for n, col := range i.Columns {
		v, ok := params[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingParameter, col)
		}
		args[n] = v.Any()
	}
	return args, nil
}

// ParamsFor normalizes every value of row. The first value that cannot be
// normalized fails the row.
func ParamsFor(row Row) (normalize.Params, error) {
	cols, vals := row.Columns(), row.Values()
	if len(cols) != len(vals) {
		return nil, fmt.Errorf("%w: %d values for %d columns", ErrInvalidColumnList, len(vals), len(cols))
	}
	return normalize.NormalizeRow(cols, vals)
}

// BuildParameterRows returns one parameter mapping per row, in input order.
// It is all or nothing: if any row fails, no mappings are returned.
func BuildParameterRows[R Row](rows []R) ([]normalize.Params, error) {
	out := make([]normalize.Params, 0, len(rows))
	for k, row := range rows {
		params, err := ParamsFor(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", k, err)
		}
		out = append(out, params)
	}
	return out, nil
}

// DropTables returns a single DROP TABLE IF EXISTS statement for names.
func DropTables(names ...string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no tables to drop", ErrInvalidTableName)
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return "", ErrInvalidTableName
		}
	}
	return "DROP TABLE IF EXISTS " + utils.QuoteIdentifiers(names), nil
}
