package etl

import (
	"context"

	"github.com/justestif/sparkify-etl/internal/db"
)

// Phase is the write side of one pipeline phase. Writes that fail are
// rolled back individually; Commit persists everything else.
type Phase interface {
	InsertSong(ctx context.Context, song db.Song) error
	InsertArtist(ctx context.Context, artist db.Artist) error
	InsertTime(ctx context.Context, row db.TimeRow) error
	UpsertUser(ctx context.Context, user db.User) error
	FindSongArtist(ctx context.Context, title, artistName string, duration float64) (*db.SongArtist, error)
	InsertSongplay(ctx context.Context, play db.Songplay) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Warehouse starts pipeline phases.
type Warehouse interface {
	BeginPhase(ctx context.Context) (Phase, error)
	Close()
}

// postgresWarehouse adapts *db.DB to Warehouse.
type postgresWarehouse struct {
	db *db.DB
}

// NewPostgresWarehouse returns a Warehouse backed by database.
func NewPostgresWarehouse(database *db.DB) Warehouse {
	return &postgresWarehouse{db: database}
}

func (w *postgresWarehouse) BeginPhase(ctx context.Context) (Phase, error) {
	p, err := w.db.BeginPhase(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (w *postgresWarehouse) Close() {
	w.db.Close()
}

// ConnectPostgres returns a connect function for Config that opens a
// single-connection pool on connString.
func ConnectPostgres(connString string) func(ctx context.Context) (Warehouse, error) {
	return func(ctx context.Context) (Warehouse, error) {
		database, err := db.New(ctx, connString, db.WithMaxConns(1))
		if err != nil {
			return nil, err
		}
		return NewPostgresWarehouse(database), nil
	}
}
