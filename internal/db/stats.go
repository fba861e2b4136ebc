package db

import (
	"context"
	"fmt"
)

// TableCounts returns the number of rows in each warehouse table, in
// schema order.
func (db *DB) TableCounts(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var n int64
		// Table names come from the static schema, never from input.
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
		if err := db.pool.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	return db.Users().Get(ctx, id)
}

// UserSongplays retrieves the most recent songplays of a user.
func (db *DB) UserSongplays(ctx context.Context, userID string, limit int) ([]Songplay, error) {
	return db.Songplays().ListByUser(ctx, userID, limit)
}

// TopSongs returns the most played resolved songs.
func (db *DB) TopSongs(ctx context.Context, limit int) ([]TopSong, error) {
	return db.Songs().TopPlayed(ctx, limit)
}
