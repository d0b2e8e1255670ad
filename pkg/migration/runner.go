package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/block/litemove/pkg/config"
	"github.com/block/litemove/pkg/dbconn"
	"github.com/block/litemove/pkg/metrics"
	"github.com/block/litemove/pkg/normalize"
	"github.com/block/litemove/pkg/source"
	"github.com/block/litemove/pkg/statement"
	"github.com/block/litemove/pkg/status"
	"github.com/block/litemove/pkg/utils"
)

var ErrColumnMismatch = errors.New("source columns are not in the target schema")

// TableError is a failure while migrating one table.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}

// IsDataError reports whether err is confined to the data or schema of a
// single table, so that the remaining tables can still be copied.
// Connection, driver and context errors are not.
func IsDataError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, normalize.ErrUnrecognizedValueType) ||
		errors.Is(err, source.ErrMissingSchema) ||
		errors.Is(err, source.ErrUnknownColumn) ||
		errors.Is(err, statement.ErrInvalidColumnList) ||
		errors.Is(err, statement.ErrInvalidTableName) ||
		errors.Is(err, statement.ErrMissingParameter) ||
		errors.Is(err, ErrColumnMismatch) ||
		errors.Is(err, ErrNoSchema)
}

// TableResult records what happened to one table.
type TableResult struct {
	Table     string
	Statement string // the named INSERT statement
	Rows      int    // rows read from the source
	Copied    int64  // rows written to the target
	Duration  time.Duration
	Err       error
}

type Runner struct {
	migration *Migration
	cfg       *config.Config
	source    *source.DB
	target    *sql.DB
	dbConfig  *dbconn.DBConfig
	tables    []string
	runID     string

	status status.State // must use atomic helpers to change.

	sync.Mutex // protects the fields below
	current    string
	results    []TableResult

	startTime  time.Time
	logger     *slog.Logger
	cancelFunc context.CancelFunc

	metricsSink metrics.Sink
}

var _ status.Task = (*Runner)(nil)

// NewRunner loads the config and opens the source file, and the target
// connection unless this is a dry run. Close must be called on the
// returned Runner.
func NewRunner(ctx context.Context, m *Migration) (*Runner, error) {
	if err := m.normalizeOptions(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithClientFile(m.Config, m.ConfFile)
	if err != nil {
		return nil, err
	}
	runner := &Runner{
		migration:   m,
		cfg:         cfg,
		tables:      m.Tables,
		runID:       uuid.NewString(),
		logger:      slog.Default(),
		metricsSink: &metrics.NoopSink{},
	}
	if m.LogMetrics {
		runner.metricsSink = metrics.NewLogSink(runner.logger)
	}
	sourcePath := m.Source
	if sourcePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		sourcePath = cfg.SQLitePath(wd)
	}
	if runner.source, err = source.Open(ctx, sourcePath); err != nil {
		return nil, err
	}
	if m.DryRun {
		return runner, nil
	}
	runner.dbConfig = dbconn.NewDBConfig()
	runner.dbConfig.TLSMode = cfg.TLSMode
	runner.dbConfig.TLSCertificatePath = m.TLSCertificatePath
	runner.dbConfig.InterpolateParams = m.InterpolateParams
	if runner.target, err = dbconn.New(cfg.DSN(), runner.dbConfig); err != nil {
		utils.ErrInErr(runner.source.Close())
		return nil, fmt.Errorf("could not connect to %s: %w", cfg, err)
	}
	return runner, nil
}

func (r *Runner) SetMetricsSink(sink metrics.Sink) {
	r.metricsSink = sink
}

func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
	if r.source != nil {
		r.source.SetLogger(logger)
	}
}

// Run drops every target table, then creates and fills them one at a time.
func (r *Runner) Run(ctx context.Context) error {
	ctx, r.cancelFunc = context.WithCancel(ctx)
	watcher := status.WatchTask(ctx, r, r.logger)
	defer func() {
		r.cancelFunc()
		<-watcher
	}()
	r.startTime = time.Now()
	r.logger.Info("Starting litemove migration",
		"run-id", r.runID,
		"source", r.source.Path(),
		"target", r.cfg.String(),
		"tables", r.tables,
		"dry-run", r.migration.DryRun,
	)

	r.status.Set(status.DropTables)
	if err := r.dropTables(ctx); err != nil {
		r.status.Set(status.ErrCleanup)
		return err
	}

	var failures []error
	for _, table := range r.tables {
		err := r.migrateTable(ctx, table)
		if err == nil {
			continue
		}
		tableErr := &TableError{Table: table, Err: err}
		if !IsDataError(err) || !r.migration.ContinueOnError {
			r.status.Set(status.ErrCleanup)
			return tableErr
		}
		r.logger.Error("table failed, continuing with the next table", "table", table, "error", err)
		failures = append(failures, tableErr)
	}
	r.status.Set(status.Close)
	if len(failures) > 0 {
		r.logger.Warn("migration finished with failed tables",
			"failed", len(failures),
			"total-time", time.Since(r.startTime).Round(time.Millisecond),
		)
		return errors.Join(failures...)
	}
	r.logger.Info("migration successfully completed",
		"run-id", r.runID,
		"tables", len(r.tables),
		"total-time", time.Since(r.startTime).Round(time.Millisecond),
	)
	return nil
}

func (r *Runner) dropTables(ctx context.Context) error {
	stmt, err := statement.DropTables(r.tables...)
	if err != nil {
		return err
	}
	if r.migration.DryRun {
		r.logger.Info("dry-run: would drop tables", "statement", stmt)
		return nil
	}
	if err := dbconn.Exec(ctx, r.target, stmt); err != nil {
		return err
	}
	r.logger.Info("tables are dropped", "tables", strings.Join(r.tables, ","))
	return nil
}

// migrateTable creates one target table and copies the source rows into it.
func (r *Runner) migrateTable(ctx context.Context, table string) (err error) {
	r.setCurrent(table)
	result := TableResult{Table: table}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		result.Err = err
		r.addResult(result)
		if !r.migration.DryRun {
			metrics.SendTableCopy(ctx, r.metricsSink, r.logger, table, result.Copied, result.Duration, err != nil)
		}
	}()

	r.logger.Info("querying source table", "table", table)
	tbl, err := r.source.ReadTable(ctx, table)
	if err != nil {
		return err
	}
	result.Rows = tbl.Len()

	r.status.Set(status.CreateTables)
	ddl, ct, err := SchemaFor(table)
	if err != nil {
		return err
	}
	if missing := ct.Missing(tbl.Columns); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrColumnMismatch, strings.Join(missing, ", "))
	}
	if !r.migration.DryRun {
		if err := dbconn.Exec(ctx, r.target, ddl); err != nil {
			return err
		}
		r.logger.Info("successfully created table", "table", table)
	}

	r.status.Set(status.CopyRows)
	ins, err := statement.NewInsert(table, tbl.Columns)
	if err != nil {
		return err
	}
	result.Statement = ins.Text()
	r.logger.Info("generating parameter rows", "table", table, "rows", tbl.Len())
	params, err := statement.BuildParameterRows(tbl.Rows)
	if err != nil {
		return err
	}
	if r.migration.DryRun {
		r.logger.Info("dry-run: would insert rows", "table", table, "rows", len(params), "statement", result.Statement)
		return nil
	}
	if result.Copied, err = dbconn.InsertRows(ctx, r.target, ins, params); err != nil {
		return err
	}
	r.logger.Info("successfully inserted rows", "table", table, "rows", result.Copied, "time", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) setCurrent(table string) {
	r.Lock()
	defer r.Unlock()
	r.current = table
}

func (r *Runner) addResult(result TableResult) {
	r.Lock()
	defer r.Unlock()
	r.results = append(r.results, result)
}

// Results returns one entry per table attempted so far, in order.
func (r *Runner) Results() []TableResult {
	r.Lock()
	defer r.Unlock()
	return append([]TableResult(nil), r.results...)
}

func (r *Runner) Progress() status.Progress {
	r.Lock()
	done, current := len(r.results), r.current
	r.Unlock()
	state := r.status.Get()
	var summary string
	switch state { //nolint: exhaustive
	case status.CreateTables, status.CopyRows:
		summary = fmt.Sprintf("%d/%d tables %s %s", done, len(r.tables), state, current)
	}
	return status.Progress{
		CurrentState: state,
		Summary:      summary,
	}
}

func (r *Runner) Status() string {
	state := r.status.Get()
	if state > status.CopyRows {
		return ""
	}
	r.Lock()
	done, current := len(r.results), r.current
	r.Unlock()
	conns := 0
	if r.target != nil {
		conns = r.target.Stats().InUse
	}
	return fmt.Sprintf("migration status: state=%s table=%s tables-done=%d/%d total-time=%s conns-in-use=%d",
		state,
		current,
		done,
		len(r.tables),
		time.Since(r.startTime).Round(time.Second),
		conns,
	)
}

// Close closes the target connection and the source file.
func (r *Runner) Close() error {
	var closers []utils.Closer
	if r.source != nil {
		closers = append(closers, r.source)
	}
	if r.target != nil {
		closers = append(closers, r.target)
	}
	r.source, r.target = nil, nil
	return utils.CloseAll(closers...)
}
