// Command create-tables drops and recreates the Sparkify database and its
// star schema tables.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/cli"
	"github.com/justestif/sparkify-etl/internal/config"
	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/logging"
)

// defaultLogFile is named in the banner when the config cannot be read.
const defaultLogFile = "db.log"

func main() {
	opts := cli.Options{}
	done, err := cli.Parse(&opts, os.Args[1:])
	if err != nil {
		os.Exit(cli.ExitFailure)
	}
	if done {
		return
	}
	if opts.Env == "" {
		opts.Env = "DB"
	}

	if err := run(opts); err != nil {
		cli.Fail(err)
	}
}

func run(opts cli.Options) error {
	cfg, err := config.Load(opts.Config, opts.Env)
	if err != nil {
		cli.Announce(os.Stderr, "create_tables", nil, defaultLogFile)
		return err
	}
	cli.Announce(os.Stderr, "create_tables", cfg, defaultLogFile)

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	logger.Info("create_tables: creating database", zap.String("database", cfg.DBName))
	if err := db.CreateDatabase(ctx, cfg.LandingConnString(), cfg.DBName, logger); err != nil {
		logging.Critical(logger, "could not create database", db.ErrorField(err))
		return err
	}

	warehouse, err := db.New(ctx, cfg.ConnString(), db.WithMaxConns(1))
	if err != nil {
		logging.Critical(logger, "could not connect to database", db.ErrorField(err))
		return fmt.Errorf("connecting to %s: %w", cfg.DBName, err)
	}
	defer warehouse.Close()

	logger.Info("create_tables: resetting tables")
	if err := db.ResetTables(ctx, warehouse.Pool(), logger); err != nil {
		logging.Critical(logger, "could not reset tables", db.ErrorField(err))
		return err
	}

	logger.Info("create_tables: done")
	return nil
}
