package db

import (
	"time"
)

// Song is a row of the songs dimension.
type Song struct {
	ID       string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is a row of the artists dimension.
type Artist struct {
	ID        string
	Name      string
	Location  *string  // nullable
	Latitude  *float64 // nullable
	Longitude *float64 // nullable
}

// TimeRow is a row of the time dimension, derived from StartTime.
type TimeRow struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// User is a row of the users dimension. Level is mutable.
type User struct {
	ID        string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Level     string `json:"level"`
}

// Songplay is a row of the songplays fact table.
type Songplay struct {
	ID        int64     `json:"songplay_id"`
	StartTime time.Time `json:"start_time"`
	UserID    string    `json:"user_id"`
	Level     string    `json:"level"`
	SongID    *string   `json:"song_id"` // nullable - unresolved plays have no song
	ArtistID  *string   `json:"artist_id"`
	SessionID int       `json:"session_id"`
	Location  string    `json:"location"`
	UserAgent string    `json:"user_agent"`
}

// SongArtist is the result of resolving a played song.
type SongArtist struct {
	SongID   string
	ArtistID string
}

// TableCount is the number of rows in one warehouse table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// TopSong is a resolved song ranked by play count.
type TopSong struct {
	SongID     string `json:"song_id"`
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
	Plays      int64  `json:"plays"`
}
