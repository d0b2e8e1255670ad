// Package inspect contains read-only diagnostics over the SQLite source and
// the MySQL target, used to size target column types and to find dirty data
// before a migration.
package inspect

import (
	"context"
	"fmt"
	"os"

	"github.com/block/litemove/pkg/config"
	"github.com/block/litemove/pkg/source"
)

// Inspect is the Kong CLI struct for the inspect command.
type Inspect struct {
	Schemas    SchemasCmd    `cmd:"" help:"Print the CREATE TABLE statements of the source."`
	Version    VersionCmd    `cmd:"" help:"Print the SQLite library version."`
	Lengths    LengthsCmd    `cmd:"" help:"Print the longest value of every text column."`
	Info       InfoCmd       `cmd:"" help:"Summarise the columns of a table."`
	Duplicates DuplicatesCmd `cmd:"" help:"List values that occur in more than one row."`
	Decimals   DecimalsCmd   `cmd:"" help:"Print digit widths of a numeric column."`
	Preview    PreviewCmd    `cmd:"" help:"Print the INSERT statement and parameters for the first rows of a table."`
	Target     TargetCmd     `cmd:"" help:"Inspect the target MySQL database."`
}

// SourceFlags locate the SQLite file, either directly or through the
// sqlite_db_relpath of a config file.
type SourceFlags struct {
	Source string `name:"source" help:"Path to the SQLite file" type:"path" optional:""`
	Config string `name:"config" help:"Path to the connection config file, used when --source is not given" type:"path" env:"LITEMOVE_CONFIG" default:"db_config.toml"`
}

func (f *SourceFlags) open(ctx context.Context) (*source.DB, error) {
	path := f.Source
	if path == "" {
		cfg, err := config.Load(f.Config)
		if err != nil {
			return nil, err
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = cfg.SQLitePath(wd)
	}
	db, err := source.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("could not open source: %w", err)
	}
	return db, nil
}
