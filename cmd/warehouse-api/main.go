// Command warehouse-api serves read-only queries over the Sparkify
// warehouse.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/api"
	"github.com/justestif/sparkify-etl/internal/cli"
	"github.com/justestif/sparkify-etl/internal/config"
	"github.com/justestif/sparkify-etl/internal/db"
)

func main() {
	opts := cli.Options{}
	done, err := cli.Parse(&opts, os.Args[1:])
	if err != nil {
		os.Exit(cli.ExitFailure)
	}
	if done {
		return
	}

	if err := run(opts); err != nil {
		cli.Fail(err)
	}
}

func run(opts cli.Options) error {
	cfg, err := config.Load(opts.Config, opts.Env)
	if err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	warehouse, err := db.New(context.Background(), cfg.ConnString())
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.DBName, err)
	}
	defer warehouse.Close()

	server, err := api.NewServer(api.ServerConfig{
		Addr:   cfg.APIAddr,
		Reader: warehouse,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("serving warehouse", zap.String("database", cfg.DBName))
	return server.Run()
}
