package db

import (
	"context"
	"fmt"
)

// SongplayRepository handles songplay fact operations.
type SongplayRepository struct {
	q Querier
}

// Insert appends a songplay and sets its generated ID. Songplays are never
// deduplicated.
func (r *SongplayRepository) Insert(ctx context.Context, play *Songplay) error {
	query := `
		INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING songplay_id
	`
	err := r.q.QueryRow(ctx, query,
		play.StartTime,
		play.UserID,
		play.Level,
		play.SongID,
		play.ArtistID,
		play.SessionID,
		play.Location,
		play.UserAgent,
	).Scan(&play.ID)
	if err != nil {
		return fmt.Errorf("inserting songplay: %w", err)
	}
	return nil
}

// ListByUser retrieves the most recent songplays of a user.
func (r *SongplayRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Songplay, error) {
	query := `
		SELECT songplay_id, start_time, user_id, level, song_id, artist_id, session_id,
			COALESCE(location, ''), COALESCE(user_agent, '')
		FROM songplays
		WHERE user_id = $1
		ORDER BY start_time DESC, songplay_id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying songplays: %w", err)
	}
	defer rows.Close()

	var plays []Songplay
	for rows.Next() {
		var p Songplay
		if err := rows.Scan(
			&p.ID,
			&p.StartTime,
			&p.UserID,
			&p.Level,
			&p.SongID,
			&p.ArtistID,
			&p.SessionID,
			&p.Location,
			&p.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("scanning songplay: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}
