// Command etl loads the song and event data sets into the Sparkify
// warehouse.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/cli"
	"github.com/justestif/sparkify-etl/internal/config"
	"github.com/justestif/sparkify-etl/internal/etl"
	"github.com/justestif/sparkify-etl/internal/metrics"
)

type options struct {
	cli.Options
	Summary bool `long:"summary" description:"Print the run report to standard output"`
}

// defaultLogFile is named in the banner when the config cannot be read.
const defaultLogFile = "etl.log"

func main() {
	opts := options{}
	done, err := cli.Parse(&opts, os.Args[1:])
	if err != nil {
		os.Exit(cli.ExitFailure)
	}
	if done {
		return
	}
	if opts.Env == "" {
		opts.Env = "INFO"
	}

	if err := run(opts); err != nil {
		cli.Fail(err)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.Config, opts.Env)
	if err != nil {
		cli.Announce(os.Stderr, "pipeline", nil, defaultLogFile)
		return err
	}
	cli.Announce(os.Stderr, "pipeline", cfg, defaultLogFile)

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	songData, _ := cfg.Get("SONG_DATA")
	logData, _ := cfg.Get("LOG_DATA")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	pipeline := etl.New(etl.Config{
		SongData: songData,
		LogData:  logData,
		Connect:  etl.ConnectPostgres(cfg.ConnString()),
	}, logger, m)

	report, runErr := pipeline.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			logger.Warn("could not write metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	if opts.Summary {
		if err := report.WriteTable(os.Stdout); err != nil {
			logger.Warn("could not print summary", zap.Error(err))
		}
	}
	return runErr
}
