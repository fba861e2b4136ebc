package etl

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/extract"
	"github.com/justestif/sparkify-etl/internal/metrics"
)

// LoadStats summarizes one load phase.
type LoadStats struct {
	Table      string
	Seen       int // records considered
	Inserted   int // statements that succeeded in a committed phase
	Duplicates int // skipped by the seen set
	Invalid    int // skipped for missing or empty fields
	Failed     int // statements that failed and were skipped
}

// Loader writes extracted records to the warehouse, one phase per table.
type Loader struct {
	wh      Warehouse
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewLoader creates a Loader. A nil metrics collects into a throwaway registry.
func NewLoader(wh Warehouse, logger *zap.Logger, m *metrics.Metrics) *Loader {
	if m == nil {
		m = metrics.New()
	}
	return &Loader{wh: wh, logger: logger, metrics: m}
}

// phase runs fn inside one warehouse phase and commits it. fn returns early
// only when ctx is done, in which case the phase is rolled back.
func (l *Loader) phase(ctx context.Context, table string, fn func(p Phase, st *LoadStats) error) (LoadStats, error) {
	st := LoadStats{Table: table}

	p, err := l.wh.BeginPhase(ctx)
	if err != nil {
		return st, fmt.Errorf("beginning %s phase: %w", table, err)
	}

	if err := fn(p, &st); err != nil {
		if rbErr := p.Rollback(ctx); rbErr != nil {
			l.logger.Warn("rollback failed", zap.String("table", table), db.ErrorField(rbErr))
		}
		st.Inserted = 0
		return st, err
	}

	if err := p.Commit(ctx); err != nil {
		_ = p.Rollback(ctx)
		st.Inserted = 0
		return st, fmt.Errorf("committing %s: %w", table, err)
	}
	l.metrics.RowsLoaded.WithLabelValues(table).Add(float64(st.Inserted))

	l.logger.Info("loaded table",
		zap.String("table", table),
		zap.Int("seen", st.Seen),
		zap.Int("inserted", st.Inserted),
		zap.Int("duplicates", st.Duplicates),
		zap.Int("invalid", st.Invalid),
		zap.Int("failed", st.Failed),
	)
	return st, nil
}

// record tallies the outcome of one write. Successful writes are published
// to the metrics only once the phase commits.
func (l *Loader) record(st *LoadStats, key string, err error) {
	if err == nil {
		st.Inserted++
		return
	}
	st.Failed++
	l.metrics.RowsFailed.WithLabelValues(st.Table).Inc()
	l.logger.Warn("write failed, skipping row",
		zap.String("table", st.Table),
		zap.String("key", key),
		db.ErrorField(err),
	)
}

// LoadSongs inserts songs, skipping empty and already seen song ids.
func (l *Loader) LoadSongs(ctx context.Context, songs []db.Song) (LoadStats, error) {
	return l.phase(ctx, "songs", func(p Phase, st *LoadStats) error {
		seen := make(map[string]struct{}, len(songs))
		for _, song := range songs {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.Seen++
			if song.ID == "" {
				st.Invalid++
				continue
			}
			if _, dup := seen[song.ID]; dup {
				st.Duplicates++
				continue
			}
			seen[song.ID] = struct{}{}
			l.record(st, song.ID, p.InsertSong(ctx, song))
		}
		return nil
	})
}

// LoadArtists inserts artists. The first record of an artist id wins.
func (l *Loader) LoadArtists(ctx context.Context, artists []db.Artist) (LoadStats, error) {
	return l.phase(ctx, "artists", func(p Phase, st *LoadStats) error {
		seen := make(map[string]struct{}, len(artists))
		for _, artist := range artists {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.Seen++
			if artist.ID == "" {
				st.Invalid++
				continue
			}
			if _, dup := seen[artist.ID]; dup {
				st.Duplicates++
				continue
			}
			seen[artist.ID] = struct{}{}
			l.record(st, artist.ID, p.InsertArtist(ctx, artist))
		}
		return nil
	})
}

// LoadTime inserts one time row per distinct event timestamp.
func (l *Loader) LoadTime(ctx context.Context, events []extract.Event) (LoadStats, error) {
	return l.phase(ctx, "time", func(p Phase, st *LoadStats) error {
		seen := make(map[int64]struct{}, len(events))
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.Seen++
			if ev.Timestamp == 0 {
				st.Invalid++
				continue
			}
			if _, dup := seen[ev.Timestamp]; dup {
				st.Duplicates++
				continue
			}
			seen[ev.Timestamp] = struct{}{}
			row := NewTimeRow(ev.Timestamp)
			l.record(st, row.StartTime.Format("2006-01-02 15:04:05.000"), p.InsertTime(ctx, row))
		}
		return nil
	})
}

// LoadUsers upserts users from events. A user seen again is written again
// only when its level changed, so the stored level is the last one seen.
func (l *Loader) LoadUsers(ctx context.Context, events []extract.Event) (LoadStats, error) {
	return l.phase(ctx, "users", func(p Phase, st *LoadStats) error {
		levels := make(map[string]string)
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.Seen++
			user := db.User{
				ID:        ev.UserID,
				FirstName: ev.FirstName,
				LastName:  ev.LastName,
				Gender:    ev.Gender,
				Level:     ev.Level,
			}
			if user.ID == "" || user.FirstName == "" || user.LastName == "" || user.Gender == "" || user.Level == "" {
				st.Invalid++
				continue
			}
			if level, ok := levels[user.ID]; ok && level == user.Level {
				st.Duplicates++
				continue
			}
			err := p.UpsertUser(ctx, user)
			if err == nil {
				levels[user.ID] = user.Level
			}
			l.record(st, user.ID, err)
		}
		return nil
	})
}

// LoadSongplays inserts one songplay per event that names a song, an artist
// and a length. Song and artist ids are resolved by title, artist name and
// duration; an unresolved play is still inserted with null ids.
func (l *Loader) LoadSongplays(ctx context.Context, events []extract.Event) (LoadStats, error) {
	return l.phase(ctx, "songplays", func(p Phase, st *LoadStats) error {
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.Seen++
			if ev.SongTitle == "" || ev.ArtistName == "" || ev.Length == 0 {
				st.Invalid++
				continue
			}

			play := db.Songplay{
				StartTime: StartTime(ev.Timestamp),
				UserID:    ev.UserID,
				Level:     ev.Level,
				SessionID: ev.SessionID,
				Location:  ev.Location,
				UserAgent: ev.UserAgent,
			}

			match, err := p.FindSongArtist(ctx, ev.SongTitle, ev.ArtistName, ev.Length)
			switch {
			case errors.Is(err, db.ErrNotFound):
				l.logger.Debug("no song match",
					zap.String("song", ev.SongTitle),
					zap.String("artist", ev.ArtistName),
					zap.Float64("length", ev.Length),
				)
			case err != nil:
				l.record(st, ev.SongTitle, err)
				continue
			default:
				play.SongID = &match.SongID
				play.ArtistID = &match.ArtistID
			}

			l.record(st, ev.SongTitle, p.InsertSongplay(ctx, play))
		}
		return nil
	})
}
