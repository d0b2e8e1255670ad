package migration

import (
	"errors"
	"fmt"

	"github.com/block/litemove/pkg/statement"
)

var ErrNoSchema = errors.New("no target schema for table")

// schemas are the target tables of the Pitchfork reviews dataset, in copy
// order. Text widths were sized from the longest values in the source.
var schemas = []struct {
	table string
	ddl   string
}{
	{"reviews", `CREATE TABLE IF NOT EXISTS reviews (
    reviewid INT,
    title CHAR(230),
    artist CHAR(95),
    url VARCHAR(265),
    score DECIMAL(4,2),
    best_new_music INT,
    author CHAR(70),
    author_type CHAR(40),
    pub_date DATE,
    pub_weekday INT,
    pub_day INT,
    pub_month INT,
    pub_year INT
)`},
	{"artists", `CREATE TABLE IF NOT EXISTS artists (
    reviewid INT,
    artist CHAR(70)
)`},
	{"genres", `CREATE TABLE genres (
    reviewid INT,
    genre CHAR(20)
)`},
	{"labels", `CREATE TABLE labels (
    reviewid INT,
    label CHAR(40)
)`},
	{"years", `CREATE TABLE years (
    reviewid INT,
    year INT
)`},
	{"content", `CREATE TABLE content (
    reviewid INT,
    content TEXT
)`},
}

// DefaultTables returns the tables with a built-in schema, in copy order.
func DefaultTables() []string {
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.table
	}
	return names
}

// SchemaFor returns the CREATE TABLE statement for table, parsed.
func SchemaFor(table string) (string, *statement.CreateTable, error) {
	for _, s := range schemas {
		if s.table != table {
			continue
		}
		ct, err := statement.ParseCreateTable(s.ddl)
		if err != nil {
			return "", nil, err
		}
		if ct.TableName != table {
			return "", nil, fmt.Errorf("schema for %s creates table %s", table, ct.TableName)
		}
		return s.ddl, ct, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrNoSchema, table)
}
