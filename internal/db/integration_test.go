//go:build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/testhelpers"
)

// freshWarehouse bootstraps a new database with the star schema.
func freshWarehouse(t *testing.T) *DB {
	t.Helper()
	pg := testhelpers.GetPostgres(t)
	ctx := context.Background()

	name := fmt.Sprintf("sparkify_%s", uuid.NewString()[:8])
	require.NoError(t, CreateDatabase(ctx, pg.LandingConnString(), name, zap.NewNop()))

	db, err := New(ctx, pg.ConnString(name))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, ResetTables(ctx, db.Pool(), zap.NewNop()))
	return db
}

func TestCreateDatabase_Rerun(t *testing.T) {
	pg := testhelpers.GetPostgres(t)
	ctx := context.Background()
	name := "sparkify_rerun"

	require.NoError(t, CreateDatabase(ctx, pg.LandingConnString(), name, zap.NewNop()))

	// An open session on the target must not block the second bootstrap.
	db, err := New(ctx, pg.ConnString(name))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, ResetTables(ctx, db.Pool(), zap.NewNop()))

	require.NoError(t, CreateDatabase(ctx, pg.LandingConnString(), name, zap.NewNop()))

	fresh, err := New(ctx, pg.ConnString(name))
	require.NoError(t, err)
	defer fresh.Close()

	var tables int
	err = fresh.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'`).Scan(&tables)
	require.NoError(t, err)
	assert.Zero(t, tables, "recreated database starts empty")
}

func TestResetTables_IsRepeatable(t *testing.T) {
	db := freshWarehouse(t)
	ctx := context.Background()

	require.NoError(t, db.Songs().Insert(ctx, &Song{ID: "S1", Title: "t", ArtistID: "A1", Duration: 1}))
	require.NoError(t, ResetTables(ctx, db.Pool(), zap.NewNop()))

	counts, err := db.TableCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, len(Tables))
	for _, c := range counts {
		assert.Zero(t, c.Rows, c.Table)
	}
}

func TestPhase_FailedStatementDoesNotAbortPhase(t *testing.T) {
	db := freshWarehouse(t)
	ctx := context.Background()

	p, err := db.BeginPhase(ctx)
	require.NoError(t, err)
	require.NoError(t, p.InsertSong(ctx, Song{ID: "S1", Title: "One", ArtistID: "A1", Duration: 10}))
	// gender is CHAR(1)
	err = p.UpsertUser(ctx, User{ID: "1", FirstName: "a", LastName: "b", Gender: "FF", Level: "free"})
	require.Error(t, err)
	require.NoError(t, p.InsertSong(ctx, Song{ID: "S2", Title: "Two", ArtistID: "A1", Duration: 20}))
	require.NoError(t, p.Commit(ctx))
	require.NoError(t, p.Rollback(ctx), "rollback after commit is a no-op")

	counts, err := db.TableCounts(ctx)
	require.NoError(t, err)
	assert.Contains(t, counts, TableCount{Table: "songs", Rows: 2})
	assert.Contains(t, counts, TableCount{Table: "users", Rows: 0})
}

func TestPhase_InsertsAreIdempotent(t *testing.T) {
	db := freshWarehouse(t)
	ctx := context.Background()
	loc := "Dubai UAE"
	lat := 49.80388

	for i := 0; i < 2; i++ {
		p, err := db.BeginPhase(ctx)
		require.NoError(t, err)
		require.NoError(t, p.InsertSong(ctx, Song{ID: "S1", Title: "One", ArtistID: "A1", Year: 2001, Duration: 269.58322}))
		require.NoError(t, p.InsertArtist(ctx, Artist{ID: "A1", Name: "Elena", Location: &loc, Latitude: &lat}))
		require.NoError(t, p.InsertTime(ctx, TimeRow{StartTime: time.UnixMilli(1541903636796).UTC(), Hour: 2, Day: 11, Week: 45, Month: 11, Year: 2018, Weekday: 7}))
		require.NoError(t, p.Commit(ctx))
	}

	song, err := db.Songs().Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 269.58322, song.Duration)

	artist, err := db.Artists().Get(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, artist.Location)
	assert.Equal(t, loc, *artist.Location)
	assert.Nil(t, artist.Longitude)

	row, err := db.Times().Get(ctx, time.UnixMilli(1541903636796).UTC())
	require.NoError(t, err)
	assert.Equal(t, 7, row.Weekday)

	counts, err := db.TableCounts(ctx)
	require.NoError(t, err)
	assert.Contains(t, counts, TableCount{Table: "songs", Rows: 1})
	assert.Contains(t, counts, TableCount{Table: "artists", Rows: 1})
	assert.Contains(t, counts, TableCount{Table: "time", Rows: 1})
}

func TestUpsertUser_UpdatesLevel(t *testing.T) {
	db := freshWarehouse(t)
	ctx := context.Background()

	users := db.Users()
	require.NoError(t, users.Upsert(ctx, &User{ID: "15", FirstName: "Lily", LastName: "Koch", Gender: "F", Level: "free"}))
	require.NoError(t, users.Upsert(ctx, &User{ID: "15", FirstName: "Lily", LastName: "Koch", Gender: "F", Level: "paid"}))

	got, err := db.GetUser(ctx, "15")
	require.NoError(t, err)
	assert.Equal(t, "paid", got.Level)

	_, err = db.GetUser(ctx, "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindSongArtist(t *testing.T) {
	db := freshWarehouse(t)
	ctx := context.Background()

	require.NoError(t, db.Songs().Insert(ctx, &Song{ID: "SOQUOTE", Title: "Don't Stop", ArtistID: "ARQUOTE", Duration: 200.5}))
	require.NoError(t, db.Artists().Insert(ctx, &Artist{ID: "ARQUOTE", Name: "Guns N' Roses"}))

	p, err := db.BeginPhase(ctx)
	require.NoError(t, err)
	defer p.Rollback(ctx)

	match, err := p.FindSongArtist(ctx, "Don't Stop", "Guns N' Roses", 200.5)
	require.NoError(t, err)
	assert.Equal(t, &SongArtist{SongID: "SOQUOTE", ArtistID: "ARQUOTE"}, match)

	_, err = p.FindSongArtist(ctx, "Don't Stop", "Guns N' Roses", 200.51)
	assert.ErrorIs(t, err, ErrNotFound)

	// the phase is still usable after a miss
	require.NoError(t, p.InsertSongplay(ctx, Songplay{StartTime: time.Now().UTC(), UserID: "1", Level: "free", SessionID: 1}))
}

func TestSongplays_NullIDsAndStats(t *testing.T) {
	db := freshWarehouse(t)
	ctx := context.Background()

	require.NoError(t, db.Songs().Insert(ctx, &Song{ID: "S1", Title: "One", ArtistID: "A1", Duration: 10}))
	require.NoError(t, db.Artists().Insert(ctx, &Artist{ID: "A1", Name: "Elena"}))

	songID, artistID := "S1", "A1"
	base := time.Date(2018, 11, 21, 21, 56, 47, 0, time.UTC)
	plays := []Songplay{
		{StartTime: base, UserID: "15", Level: "free", SongID: &songID, ArtistID: &artistID, SessionID: 818, Location: "Chicago", UserAgent: "Mozilla/5.0"},
		{StartTime: base.Add(time.Minute), UserID: "15", Level: "free", SongID: &songID, ArtistID: &artistID, SessionID: 818},
		{StartTime: base.Add(2 * time.Minute), UserID: "15", Level: "paid", SessionID: 818},
	}
	for i := range plays {
		require.NoError(t, db.Songplays().Insert(ctx, &plays[i]))
		assert.NotZero(t, plays[i].ID)
	}

	got, err := db.UserSongplays(ctx, "15", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "paid", got[0].Level)
	assert.Nil(t, got[0].SongID)
	require.NotNil(t, got[1].SongID)
	assert.Equal(t, "S1", *got[1].SongID)

	top, err := db.TopSongs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []TopSong{{SongID: "S1", Title: "One", ArtistName: "Elena", Plays: 2}}, top)
}
