package source

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownColumn = errors.New("unknown column")

// Row is one source row. The column slice is shared by every row of a table.
type Row struct {
	columns []string
	values  []any
}

// NewRow returns a row with values for columns. columns is not copied.
func NewRow(columns []string, values ...any) Row {
	return Row{columns: columns, values: values}
}

func (r Row) Columns() []string {
	return r.columns
}

// Values returns a copy of the raw values in column order.
func (r Row) Values() []any {
	return slices.Clone(r.values)
}

// Get returns the raw value of the named column.
func (r Row) Get(name string) (any, bool) {
	i := slices.Index(r.columns, name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Table is an in-memory copy of a table or query result.
type Table struct {
	Name      string
	Columns   []string
	DeclTypes []string // declared column types, may be empty strings
	Rows      []Row
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]any, error) {
	i := slices.Index(t.Columns, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s in table %s", ErrUnknownColumn, name, t.Name)
	}
	out := make([]any, len(t.Rows))
	for n, row := range t.Rows {
		out[n] = row.values[i]
	}
	return out, nil
}

// Filter returns a table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := t.withRows(nil)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Head returns a table with at most the first n rows.
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, len(t.Rows)))
	return t.withRows(t.Rows[:n:n])
}

func (t *Table) withRows(rows []Row) *Table {
	return &Table{
		Name:      t.Name,
		Columns:   t.Columns,
		DeclTypes: t.DeclTypes,
		Rows:      rows,
	}
}
