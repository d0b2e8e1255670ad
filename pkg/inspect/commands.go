package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/block/litemove/pkg/normalize"
	"github.com/block/litemove/pkg/profile"
	"github.com/block/litemove/pkg/source"
	"github.com/block/litemove/pkg/statement"
	"github.com/block/litemove/pkg/utils"
)

// lengthsConcurrency bounds how many tables are loaded at once.
const lengthsConcurrency = 4

type SchemasCmd struct {
	SourceFlags `embed:""`
}

func (c *SchemasCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *SchemasCmd) run(ctx context.Context, w io.Writer) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer utils.CloseAndLog(db)
	schemas, err := db.Schemas(ctx)
	if err != nil {
		return err
	}
	for _, schema := range schemas {
		fmt.Fprintf(w, "%s;\n\n", schema)
	}
	return nil
}

type VersionCmd struct {
	SourceFlags `embed:""`
}

func (c *VersionCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *VersionCmd) run(ctx context.Context, w io.Writer) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer utils.CloseAndLog(db)
	version, err := db.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "SQLite version: %s\n", version)
	return nil
}

type LengthsCmd struct {
	SourceFlags `embed:""`
	Tables      []string `arg:"" optional:"" help:"Tables to profile. Defaults to every table."`
}

func (c *LengthsCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *LengthsCmd) run(ctx context.Context, w io.Writer) error {
	db, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer utils.CloseAndLog(db)
	tables := c.Tables
	if len(tables) == 0 {
		if tables, err = db.Tables(ctx); err != nil {
			return err
		}
	}
	results := make([][]profile.ColumnLength, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lengthsConcurrency)
	for i, name := range tables {
		g.Go(func() error {
			tbl, err := db.ReadTable(gctx, name)
			if err != nil {
				return err
			}
			results[i] = profile.MaxLengths(tbl)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, name := range tables {
		fmt.Fprintf(tw, "%s\n", name)
		if len(results[i]) == 0 {
			fmt.Fprintf(tw, "  No Columns with Objects\n")
			continue
		}
		for _, cl := range results[i] {
			fmt.Fprintf(tw, "  %s\t%d\n", cl.Column, cl.MaxLen)
		}
	}
	return tw.Flush()
}

type InfoCmd struct {
	SourceFlags `embed:""`
	Table       string `arg:"" help:"Table to summarise."`
}

func (c *InfoCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *InfoCmd) run(ctx context.Context, w io.Writer) error {
	tbl, err := readTable(ctx, &c.SourceFlags, c.Table)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "table %s: %d rows, %d columns\n", tbl.Name, tbl.Len(), len(tbl.Columns))
	fmt.Fprintf(tw, "column\ttype\tnon-null\tkinds\n")
	for _, info := range profile.Info(tbl) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", info.Column, info.DeclType, info.NonNull, strings.Join(info.Kinds, ","))
	}
	return tw.Flush()
}

type DuplicatesCmd struct {
	SourceFlags `embed:""`
	Table       string `arg:"" help:"Table to search."`
	Column      string `arg:"" help:"Column whose values should be unique."`
}

func (c *DuplicatesCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *DuplicatesCmd) run(ctx context.Context, w io.Writer) error {
	tbl, err := readTable(ctx, &c.SourceFlags, c.Table)
	if err != nil {
		return err
	}
	dups, err := profile.Duplicates(tbl, c.Column)
	if err != nil {
		return err
	}
	if len(dups) == 0 {
		fmt.Fprintf(w, "no duplicate values in %s.%s\n", c.Table, c.Column)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tcount\n", c.Column)
	for _, d := range dups {
		fmt.Fprintf(tw, "%s\t%d\n", d.Value, d.Count)
	}
	return tw.Flush()
}

type DecimalsCmd struct {
	SourceFlags `embed:""`
	Table       string `arg:"" help:"Table to measure."`
	Column      string `arg:"" help:"Numeric column to measure."`
}

func (c *DecimalsCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *DecimalsCmd) run(ctx context.Context, w io.Writer) error {
	tbl, err := readTable(ctx, &c.SourceFlags, c.Table)
	if err != nil {
		return err
	}
	widths, err := profile.DecimalWidths(tbl, c.Column)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s.%s: %d whole digits, %d fraction digits (DECIMAL(%d,%d))\n",
		c.Table, c.Column, widths.Whole, widths.Fraction, widths.Whole+widths.Fraction, widths.Fraction)
	return nil
}

type PreviewCmd struct {
	SourceFlags `embed:""`
	Table       string   `arg:"" help:"Table to preview."`
	Limit       int      `name:"limit" help:"Number of rows to show" default:"5"`
	Null        []string `name:"null" help:"Only show rows where these columns are missing" optional:"" sep:","`
}

func (c *PreviewCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *PreviewCmd) run(ctx context.Context, w io.Writer) error {
	tbl, err := readTable(ctx, &c.SourceFlags, c.Table)
	if err != nil {
		return err
	}
	for _, col := range c.Null {
		if !slices.Contains(tbl.Columns, col) {
			return fmt.Errorf("%w: %s in table %s", source.ErrUnknownColumn, col, c.Table)
		}
	}
	if len(c.Null) > 0 {
		tbl = tbl.Filter(func(r source.Row) bool {
			for _, col := range c.Null {
				if v, _ := r.Get(col); !normalize.IsMissing(v) {
					return false
				}
			}
			return true
		})
	}
	tbl = tbl.Head(c.Limit)
	if tbl.Len() == 0 {
		fmt.Fprintf(w, "no rows in %s\n", c.Table)
		return nil
	}
	ins, err := statement.NewInsert(c.Table, tbl.Columns)
	if err != nil {
		return err
	}
	params, err := statement.BuildParameterRows(tbl.Rows)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, ins.Text())
	for _, p := range params {
		fields := make([]string, len(ins.Columns))
		for i, col := range ins.Columns {
			fields[i] = col + "=" + p[col].String()
		}
		fmt.Fprintf(w, "  {%s}\n", strings.Join(fields, ", "))
	}
	return nil
}

func readTable(ctx context.Context, flags *SourceFlags, name string) (*source.Table, error) {
	db, err := flags.open(ctx)
	if err != nil {
		return nil, err
	}
	defer utils.CloseAndLog(db)
	return db.ReadTable(ctx, name)
}
