package statement

import (
	"fmt"
	"strings"

	perrors "github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/pingcap/tidb/pkg/parser/types"
)

// CreateTable is a parsed CREATE TABLE statement.
type CreateTable struct {
	Raw         *ast.CreateTableStmt
	TableName   string
	IfNotExists bool
	Columns     Columns
}

// Column is a column definition from a CREATE TABLE statement.
// Length, Precision and Scale are nil when the type does not declare them.
type Column struct {
	Name      string
	Type      string
	Length    *int
	Precision *int
	Scale     *int
	Unsigned  bool
	Nullable  bool
}

type Columns []Column

// ParseCreateTable parses exactly one CREATE TABLE statement.
func ParseCreateTable(sql string) (*CreateTable, error) {
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, perrors.Annotate(err, "failed to parse SQL")
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("expected exactly one statement, got %d", len(stmts))
	}
	createStmt, ok := stmts[0].(*ast.CreateTableStmt)
	if !ok {
		return nil, fmt.Errorf("expected CREATE TABLE statement, got %T", stmts[0])
	}
	ct := &CreateTable{Raw: createStmt}
	ct.parseToStruct()
	return ct, nil
}

func (ct *CreateTable) parseToStruct() {
	ct.TableName = ct.Raw.Table.Name.String()
	ct.IfNotExists = ct.Raw.IfNotExists
	ct.Columns = make(Columns, 0, len(ct.Raw.Cols))
	for _, col := range ct.Raw.Cols {
		ct.Columns = append(ct.Columns, parseColumn(col))
	}
}

func parseColumn(col *ast.ColumnDef) Column {
	column := Column{
		Name:     col.Name.Name.String(),
		Type:     types.TypeStr(col.Tp.GetType()),
		Unsigned: mysql.HasUnsignedFlag(col.Tp.GetFlag()),
		Nullable: true,
	}
	flen, decimal := col.Tp.GetFlen(), col.Tp.GetDecimal()
	switch col.Tp.GetType() {
	case mysql.TypeNewDecimal:
		if flen > 0 {
			column.Precision = &flen
		}
		if decimal > 0 {
			column.Scale = &decimal
		}
	case mysql.TypeString, mysql.TypeVarchar, mysql.TypeVarString:
		if flen > 0 {
			column.Length = &flen
		}
	}
	for _, opt := range col.Options {
		switch opt.Tp { //nolint:exhaustive
		case ast.ColumnOptionNotNull, ast.ColumnOptionPrimaryKey:
			column.Nullable = false
		case ast.ColumnOptionNull:
			column.Nullable = true
		}
	}
	return column
}

// ColumnNames returns the column names in declaration order.
func (ct *CreateTable) ColumnNames() []string {
	names := make([]string, len(ct.Columns))
	for i, col := range ct.Columns {
		names[i] = col.Name
	}
	return names
}

// Missing returns the names in columns which the table does not declare,
// in the order given.
func (ct *CreateTable) Missing(columns []string) []string {
	var missing []string
	for _, name := range columns {
		if ct.Columns.ByName(name) == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// ByName returns the column named name, or nil. MySQL column names are
// case insensitive.
func (columns Columns) ByName(name string) *Column {
	for i := range columns {
		if strings.EqualFold(columns[i].Name, name) {
			return &columns[i]
		}
	}
	return nil
}
