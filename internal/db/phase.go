package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Phase is a transaction spanning one pipeline phase. Every write runs in its
// own savepoint, so a failed statement is rolled back alone and the rest of
// the phase still commits.
type Phase struct {
	tx pgx.Tx
}

// BeginPhase starts a phase transaction.
func (db *DB) BeginPhase(ctx context.Context) (*Phase, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning phase: %w", err)
	}
	return &Phase{tx: tx}, nil
}

func (p *Phase) savepoint(ctx context.Context, fn func(q Querier) error) error {
	sp, err := p.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back savepoint: %w", rbErr))
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}

// InsertSong adds a song within the phase.
func (p *Phase) InsertSong(ctx context.Context, song Song) error {
	return p.savepoint(ctx, func(q Querier) error {
		return (&SongRepository{q: q}).Insert(ctx, &song)
	})
}

// InsertArtist adds an artist within the phase.
func (p *Phase) InsertArtist(ctx context.Context, artist Artist) error {
	return p.savepoint(ctx, func(q Querier) error {
		return (&ArtistRepository{q: q}).Insert(ctx, &artist)
	})
}

// InsertTime adds a time row within the phase.
func (p *Phase) InsertTime(ctx context.Context, row TimeRow) error {
	return p.savepoint(ctx, func(q Querier) error {
		return (&TimeRepository{q: q}).Insert(ctx, &row)
	})
}

// UpsertUser upserts a user within the phase.
func (p *Phase) UpsertUser(ctx context.Context, user User) error {
	return p.savepoint(ctx, func(q Querier) error {
		return (&UserRepository{q: q}).Upsert(ctx, &user)
	})
}

// FindSongArtist resolves a play to song and artist ids. It returns
// ErrNotFound when nothing matches.
func (p *Phase) FindSongArtist(ctx context.Context, title, artistName string, duration float64) (*SongArtist, error) {
	var match *SongArtist
	err := p.savepoint(ctx, func(q Querier) error {
		var err error
		match, err = (&SongRepository{q: q}).FindByTitleArtistDuration(ctx, title, artistName, duration)
		return err
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// InsertSongplay appends a songplay within the phase.
func (p *Phase) InsertSongplay(ctx context.Context, play Songplay) error {
	return p.savepoint(ctx, func(q Querier) error {
		return (&SongplayRepository{q: q}).Insert(ctx, &play)
	})
}

// Commit commits the phase.
func (p *Phase) Commit(ctx context.Context) error {
	return p.tx.Commit(ctx)
}

// Rollback aborts the phase. It is a no-op after Commit.
func (p *Phase) Rollback(ctx context.Context) error {
	err := p.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
