// Package migration copies the tables of a SQLite file into MySQL.
package migration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
)

type Migration struct {
	Config          string   `name:"config" help:"Path to the connection config file" type:"path" env:"LITEMOVE_CONFIG" default:"db_config.toml"`
	ConfFile        string   `name:"conf" help:"MySQL option file whose [client] user, password, host and port fill in what the config file leaves out" type:"path" optional:""`
	Tables          []string `name:"tables" help:"Tables to copy, in order. Defaults to every table with a built-in schema" optional:"" sep:","`
	Source          string   `name:"source" help:"Path to the SQLite file, overrides sqlite_db_relpath" optional:"" type:"path"`
	ContinueOnError bool     `name:"continue-on-error" help:"Keep going when a table fails with a data error and report all failures at the end" optional:"" default:"false"`
	DryRun          bool     `name:"dry-run" help:"Read the source and build every statement without touching the target" optional:"" default:"false"`
	LogMetrics      bool     `name:"log-metrics" help:"Log per-table row counts and copy times as metrics" optional:"" default:"false"`
	// TLS Configuration
	TLSCertificatePath string `name:"tls-ca" help:"Path to custom TLS CA certificate file" optional:""`

	// Hidden options
	InterpolateParams bool `name:"interpolate-params" help:"Enable interpolate params for DSN" optional:"" default:"false" hidden:""`
}

func (m *Migration) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	migration, err := NewRunner(ctx, m)
	if err != nil {
		return err
	}
	defer migration.Close()
	return migration.Run(ctx)
}

// normalizeOptions does some validation and sets defaults.
func (m *Migration) normalizeOptions() error {
	if strings.TrimSpace(m.Config) == "" {
		return errors.New("config is required")
	}
	if len(m.Tables) == 0 {
		m.Tables = DefaultTables()
	}
	seen := make(map[string]struct{}, len(m.Tables))
	for i, name := range m.Tables {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("table %d is blank", i)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("table %s is listed more than once", name)
		}
		if !slices.Contains(DefaultTables(), name) {
			return fmt.Errorf("%w: %s", ErrNoSchema, name)
		}
		seen[name] = struct{}{}
		m.Tables[i] = name
	}
	return nil
}
