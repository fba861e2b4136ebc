package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SongRepository handles song database operations.
type SongRepository struct {
	q Querier
}

// Insert adds a song. An existing song_id is left untouched.
func (r *SongRepository) Insert(ctx context.Context, song *Song) error {
	query := `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (song_id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query,
		song.ID,
		song.Title,
		song.ArtistID,
		song.Year,
		song.Duration,
	)
	if err != nil {
		return fmt.Errorf("inserting song: %w", err)
	}
	return nil
}

// Get retrieves a song by ID.
func (r *SongRepository) Get(ctx context.Context, id string) (*Song, error) {
	query := `
		SELECT song_id, title, artist_id, year, duration::float8
		FROM songs
		WHERE song_id = $1
	`
	var song Song
	err := r.q.QueryRow(ctx, query, id).Scan(
		&song.ID,
		&song.Title,
		&song.ArtistID,
		&song.Year,
		&song.Duration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &song, nil
}

// FindByTitleArtistDuration resolves the song and artist ids of a play from
// its song title, artist name and duration. Values are bound as parameters,
// so quotes in titles and names need no escaping.
func (r *SongRepository) FindByTitleArtistDuration(ctx context.Context, title, artistName string, duration float64) (*SongArtist, error) {
	query := `
		SELECT s.song_id, s.artist_id
		FROM songs s
		JOIN artists a ON s.artist_id = a.artist_id
		WHERE s.title = $1 AND a.name = $2 AND s.duration = $3::numeric
		LIMIT 1
	`
	var match SongArtist
	err := r.q.QueryRow(ctx, query, title, artistName, duration).Scan(&match.SongID, &match.ArtistID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up song: %w", err)
	}
	return &match, nil
}

// TopPlayed returns the most played resolved songs.
func (r *SongRepository) TopPlayed(ctx context.Context, limit int) ([]TopSong, error) {
	query := `
		SELECT s.song_id, s.title, COALESCE(a.name, ''), COUNT(*) AS plays
		FROM songplays sp
		JOIN songs s ON sp.song_id = s.song_id
		LEFT JOIN artists a ON s.artist_id = a.artist_id
		GROUP BY s.song_id, s.title, a.name
		ORDER BY plays DESC, s.title
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top songs: %w", err)
	}
	defer rows.Close()

	var songs []TopSong
	for rows.Next() {
		var s TopSong
		if err := rows.Scan(&s.SongID, &s.Title, &s.ArtistName, &s.Plays); err != nil {
			return nil, fmt.Errorf("scanning top song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}
