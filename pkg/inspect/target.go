package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/block/litemove/pkg/config"
	"github.com/block/litemove/pkg/dbconn"
	"github.com/block/litemove/pkg/utils"
)

type TargetCmd struct {
	Config             string `name:"config" help:"Path to the connection config file" type:"path" env:"LITEMOVE_CONFIG" default:"db_config.toml"`
	ConfFile           string `name:"conf" help:"MySQL option file whose [client] user, password, host and port fill in what the config file leaves out" type:"path" optional:""`
	Engine             string `name:"engine" help:"Storage engine to list tables for" default:"InnoDB"`
	TLSCertificatePath string `name:"tls-ca" help:"Path to custom TLS CA certificate file" optional:""`
}

func (c *TargetCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *TargetCmd) run(ctx context.Context, w io.Writer) error {
	cfg, err := config.LoadWithClientFile(c.Config, c.ConfFile)
	if err != nil {
		return err
	}
	dbConfig := dbconn.NewDBConfig()
	dbConfig.TLSMode = cfg.TLSMode
	dbConfig.TLSCertificatePath = c.TLSCertificatePath
	db, err := dbconn.New(cfg.DSN(), dbConfig)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", cfg, err)
	}
	defer utils.CloseAndLog(db)

	version, err := dbconn.ServerVersion(ctx, db)
	if err != nil {
		return err
	}
	tables, err := dbconn.ShowTables(ctx, db)
	if err != nil {
		return err
	}
	packet, err := dbconn.MaxAllowedPacket(ctx, db)
	if err != nil {
		return err
	}
	engineTables, err := dbconn.TablesByEngine(ctx, db, c.Engine, cfg.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "server version: %s\n", version)
	fmt.Fprintf(w, "database: %s\n", cfg.Name)
	fmt.Fprintf(w, "tables: %s\n", listOrNone(tables))
	fmt.Fprintf(w, "max_allowed_packet: %d bytes (%.1f MiB)\n", packet, float64(packet)/(1<<20))
	fmt.Fprintf(w, "%s tables: %s\n", c.Engine, listOrNone(engineTables))
	return nil
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
