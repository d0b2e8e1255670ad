// Package utils contains some common utilities used by all other packages.
package utils

import (
	"log/slog"
	"strings"
)

// QuoteIdentifier wraps a MySQL identifier in backticks, doubling any
// backtick it contains.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteIdentifiers quotes each name and joins them with ", ".
func QuoteIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

// QuoteSQLiteIdentifier wraps an identifier in double quotes for SQLite.
func QuoteSQLiteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ErrInErr is used when an error occurs while handling another error,
// typically a failed Close() on an error path. It is logged and discarded.
func ErrInErr(err error) {
	if err != nil {
		slog.Warn("error encountered while handling another error", "error", err)
	}
}
