// Package etl loads song metadata and activity logs into the Sparkify star
// schema.
package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/extract"
	"github.com/justestif/sparkify-etl/internal/files"
	"github.com/justestif/sparkify-etl/internal/logging"
	"github.com/justestif/sparkify-etl/internal/metrics"
)

// Pipeline phases, in execution order.
const (
	PhaseConnect       = "connect"
	PhaseExtractSongs  = "extract songs"
	PhaseLoadSongs     = "load songs and artists"
	PhaseExtractEvents = "extract events"
	PhaseLoadTime      = "load time"
	PhaseLoadUsers     = "load users"
	PhaseLoadSongplays = "load songplays"
)

// PhaseError reports the phase that aborted a run.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Config configures a Pipeline.
type Config struct {
	SongData string // root of the song-metadata files
	LogData  string // root of the event-log files

	// Fs is the filesystem searched for data files. Defaults to the OS.
	Fs afero.Fs

	// Connect opens the warehouse at the start of a run.
	Connect func(ctx context.Context) (Warehouse, error)
}

// Pipeline runs the ETL phases in order over a single warehouse connection.
type Pipeline struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Pipeline. A nil metrics collects into a throwaway registry.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{cfg: cfg, logger: logger, metrics: m}
}

// Run executes one pipeline run. Per-record problems are logged and
// skipped; the first phase failure aborts the run with a *PhaseError. The
// returned report covers the phases that completed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.New(), Started: time.Now()}
	logger := p.logger.With(zap.Stringer("run_id", report.RunID))

	fail := func(phase string, err error) (*Report, error) {
		report.Finished = time.Now()
		report.FailedPhase = phase
		logging.Critical(logger, "pipeline phase failed, aborting", zap.String("phase", phase), db.ErrorField(err))
		return report, &PhaseError{Phase: phase, Err: err}
	}

	if p.cfg.Connect == nil {
		return fail(PhaseConnect, errors.New("no warehouse configured"))
	}

	logger.Info("pipeline: connecting to database")
	var wh Warehouse
	err := p.timed(PhaseConnect, func() (err error) {
		wh, err = p.cfg.Connect(ctx)
		return err
	})
	if err != nil {
		return fail(PhaseConnect, err)
	}
	defer wh.Close()

	loader := NewLoader(wh, logger, p.metrics)

	logger.Info("pipeline: processing song and artist data", zap.String("root", p.cfg.SongData))
	var songs []db.Song
	var artists []db.Artist
	err = p.timed(PhaseExtractSongs, func() error {
		paths, err := files.Discover(p.cfg.Fs, p.cfg.SongData)
		if err != nil {
			return err
		}
		var st extract.Stats
		songs, artists, st = extract.ExtractSongs(p.cfg.Fs, paths, logger)
		p.recordExtract(report, st)
		return nil
	})
	if err != nil {
		return fail(PhaseExtractSongs, err)
	}

	err = p.timed(PhaseLoadSongs, func() error {
		st, err := loader.LoadSongs(ctx, songs)
		report.Loads = append(report.Loads, st)
		if err != nil {
			return err
		}
		st, err = loader.LoadArtists(ctx, artists)
		report.Loads = append(report.Loads, st)
		return err
	})
	if err != nil {
		return fail(PhaseLoadSongs, err)
	}

	logger.Info("pipeline: processing log event data", zap.String("root", p.cfg.LogData))
	var events []extract.Event
	err = p.timed(PhaseExtractEvents, func() error {
		paths, err := files.Discover(p.cfg.Fs, p.cfg.LogData)
		if err != nil {
			return err
		}
		var st extract.Stats
		events, st = extract.ExtractEvents(p.cfg.Fs, paths, logger)
		p.recordExtract(report, st)
		return nil
	})
	if err != nil {
		return fail(PhaseExtractEvents, err)
	}

	steps := []struct {
		phase string
		load  func(context.Context, []extract.Event) (LoadStats, error)
	}{
		{PhaseLoadTime, loader.LoadTime},
		{PhaseLoadUsers, loader.LoadUsers},
		{PhaseLoadSongplays, loader.LoadSongplays},
	}
	for _, step := range steps {
		logger.Info("pipeline: " + step.phase)
		err = p.timed(step.phase, func() error {
			st, err := step.load(ctx, events)
			report.Loads = append(report.Loads, st)
			return err
		})
		if err != nil {
			return fail(step.phase, err)
		}
	}

	report.Finished = time.Now()
	logger.Info("pipeline: completed processing all data", zap.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

func (p *Pipeline) timed(phase string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	return err
}

func (p *Pipeline) recordExtract(report *Report, st extract.Stats) {
	report.Extracts = append(report.Extracts, st)
	p.metrics.RecordsExtracted.WithLabelValues(st.Source).Add(float64(st.Records))
	p.metrics.RecordsSkipped.WithLabelValues(st.Source).Add(float64(st.Skipped))
}
