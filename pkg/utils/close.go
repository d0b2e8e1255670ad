package utils

import (
	"log/slog"
)

// Closer is an interface for types that have a Close() method.
// This is compatible with io.Closer, *sql.DB, *sql.Rows and *sql.Stmt.
type Closer interface {
	Close() error
}

// CloseAndLog closes a resource and logs any error. This is useful for defer statements
// where the error cannot be meaningfully handled except by logging.
// Example: defer utils.CloseAndLog(db)
func CloseAndLog(closer Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Error("deferred close failed", "error", err)
	}
}

// CloseAll closes every resource in reverse order and returns the first
// error encountered. All closers are attempted even when one fails.
func CloseAll(closers ...Closer) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
