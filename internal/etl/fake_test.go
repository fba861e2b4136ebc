package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justestif/sparkify-etl/internal/db"
)

// fakeWarehouse is an in-memory Warehouse with the conflict semantics of
// the PostgreSQL schema. Writes become visible on Commit.
type fakeWarehouse struct {
	songs     map[string]db.Song
	artists   map[string]db.Artist
	times     map[int64]db.TimeRow
	users     map[string]db.User
	songplays []db.Songplay

	// failOn makes writes whose key matches fail, as a database error would.
	failOn map[string]error
	// failBegin and failCommit fail the phase itself.
	failBegin  error
	failCommit error

	phases    int
	commits   int
	rollbacks int
	closed    bool
	lookups   []string
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		songs:   make(map[string]db.Song),
		artists: make(map[string]db.Artist),
		times:   make(map[int64]db.TimeRow),
		users:   make(map[string]db.User),
		failOn:  make(map[string]error),
	}
}

func (w *fakeWarehouse) BeginPhase(ctx context.Context) (Phase, error) {
	if w.failBegin != nil {
		return nil, w.failBegin
	}
	w.phases++
	return &fakePhase{w: w}, nil
}

func (w *fakeWarehouse) Close() {
	w.closed = true
}

type fakePhase struct {
	w       *fakeWarehouse
	pending []func()
	done    bool
}

func (p *fakePhase) fail(key string) error {
	if err, ok := p.w.failOn[key]; ok {
		return err
	}
	return nil
}

func (p *fakePhase) InsertSong(ctx context.Context, song db.Song) error {
	if err := p.fail(song.ID); err != nil {
		return err
	}
	p.pending = append(p.pending, func() {
		if _, ok := p.w.songs[song.ID]; !ok {
			p.w.songs[song.ID] = song
		}
	})
	return nil
}

func (p *fakePhase) InsertArtist(ctx context.Context, artist db.Artist) error {
	if err := p.fail(artist.ID); err != nil {
		return err
	}
	p.pending = append(p.pending, func() {
		if _, ok := p.w.artists[artist.ID]; !ok {
			p.w.artists[artist.ID] = artist
		}
	})
	return nil
}

func (p *fakePhase) InsertTime(ctx context.Context, row db.TimeRow) error {
	if err := p.fail(row.StartTime.String()); err != nil {
		return err
	}
	p.pending = append(p.pending, func() {
		key := row.StartTime.UnixMilli()
		if _, ok := p.w.times[key]; !ok {
			p.w.times[key] = row
		}
	})
	return nil
}

func (p *fakePhase) UpsertUser(ctx context.Context, user db.User) error {
	if err := p.fail(user.ID); err != nil {
		return err
	}
	p.pending = append(p.pending, func() {
		if existing, ok := p.w.users[user.ID]; ok {
			existing.Level = user.Level
			p.w.users[user.ID] = existing
			return
		}
		p.w.users[user.ID] = user
	})
	return nil
}

// FindSongArtist only sees committed songs and artists, as the real lookup
// runs in a later phase than the song load.
func (p *fakePhase) FindSongArtist(ctx context.Context, title, artistName string, duration float64) (*db.SongArtist, error) {
	p.w.lookups = append(p.w.lookups, fmt.Sprintf("%s|%s|%g", title, artistName, duration))
	if err := p.fail("lookup:" + title); err != nil {
		return nil, err
	}
	for _, s := range p.w.songs {
		a, ok := p.w.artists[s.ArtistID]
		if ok && s.Title == title && a.Name == artistName && s.Duration == duration {
			return &db.SongArtist{SongID: s.ID, ArtistID: a.ID}, nil
		}
	}
	return nil, db.ErrNotFound
}

func (p *fakePhase) InsertSongplay(ctx context.Context, play db.Songplay) error {
	if err := p.fail("play:" + play.UserID); err != nil {
		return err
	}
	p.pending = append(p.pending, func() {
		play.ID = int64(len(p.w.songplays) + 1)
		p.w.songplays = append(p.w.songplays, play)
	})
	return nil
}

func (p *fakePhase) Commit(ctx context.Context) error {
	if p.done {
		return errors.New("phase already finished")
	}
	if p.w.failCommit != nil {
		return p.w.failCommit
	}
	for _, apply := range p.pending {
		apply()
	}
	p.done = true
	p.w.commits++
	return nil
}

func (p *fakePhase) Rollback(ctx context.Context) error {
	if p.done {
		return nil
	}
	p.done = true
	p.pending = nil
	p.w.rollbacks++
	return nil
}

// dbError mimics a per-statement database failure.
type dbError string

func (e dbError) Error() string { return "ERROR: " + string(e) }

func strptr(s string) *string { return &s }

func lines(ls ...string) string { return strings.Join(ls, "\n") }
