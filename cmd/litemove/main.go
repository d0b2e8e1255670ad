package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/block/litemove/pkg/buildinfo"
	"github.com/block/litemove/pkg/inspect"
	"github.com/block/litemove/pkg/migration"
)

// Set by the release build with -ldflags.
var (
	version string
	commit  string
	date    string
)

type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Println(buildinfo.Get())
	return nil
}

var cli struct {
	LogLevel string `name:"log-level" help:"Minimum level of log messages" enum:"debug,info,warn,error" default:"info"`

	Migrate migration.Migration `cmd:"" help:"Copy the tables of a SQLite file into MySQL."`
	Inspect inspect.Inspect     `cmd:"" help:"Inspect the SQLite source or the MySQL target."`
	Version VersionCmd          `cmd:"" help:"Print the litemove version."`
}

func main() {
	buildinfo.Set(version, commit, date)
	ctx := kong.Parse(&cli,
		kong.Name("litemove"),
		kong.Description("litemove: copy a SQLite database into MySQL"),
		kong.UsageOnError(),
	)
	var level slog.Level
	ctx.FatalIfErrorf(level.UnmarshalText([]byte(cli.LogLevel)))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	ctx.FatalIfErrorf(ctx.Run())
}
