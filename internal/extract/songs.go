package extract

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/db"
)

var songKeys = []string{
	"song_id", "title", "artist_id", "year", "duration",
	"artist_name", "artist_location", "artist_latitude", "artist_longitude",
}

// songDocument is one song-metadata file.
type songDocument struct {
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	ArtistID        string   `json:"artist_id"`
	Year            flexInt  `json:"year"`
	Duration        float64  `json:"duration"`
	ArtistName      string   `json:"artist_name"`
	ArtistLocation  *string  `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
}

// ParseSong decodes one song-metadata document into its song and artist
// records.
func ParseSong(data []byte) (db.Song, db.Artist, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return db.Song{}, db.Artist{}, fmt.Errorf("decoding song document: %w", err)
	}
	if err := requireKeys(raw, songKeys); err != nil {
		return db.Song{}, db.Artist{}, err
	}

	var doc songDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return db.Song{}, db.Artist{}, fmt.Errorf("decoding song document: %w", err)
	}

	song := db.Song{
		ID:       doc.SongID,
		Title:    doc.Title,
		ArtistID: doc.ArtistID,
		Year:     int(doc.Year),
		Duration: doc.Duration,
	}
	artist := db.Artist{
		ID:        doc.ArtistID,
		Name:      doc.ArtistName,
		Location:  doc.ArtistLocation,
		Latitude:  doc.ArtistLatitude,
		Longitude: doc.ArtistLongitude,
	}
	return song, artist, nil
}

// ExtractSongs reads every song file and collects song and artist records
// in file order. Unreadable or invalid files are logged and skipped.
func ExtractSongs(fs afero.Fs, files []string, logger *zap.Logger) ([]db.Song, []db.Artist, Stats) {
	stats := Stats{Source: "songs", Files: len(files)}
	songs := make([]db.Song, 0, len(files))
	artists := make([]db.Artist, 0, len(files))

	for _, path := range files {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping unreadable song file", zap.String("path", path), zap.Error(err))
			continue
		}

		song, artist, err := ParseSong(data)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping song file", zap.String("path", path), jsonErrorField(err))
			continue
		}

		songs = append(songs, song)
		artists = append(artists, artist)
		stats.Records++
	}

	return songs, artists, stats
}

// jsonErrorField adds the byte offset to syntax errors.
func jsonErrorField(err error) zap.Field {
	if syntaxErr, ok := asSyntaxError(err); ok {
		return zap.Dict("error",
			zap.String("message", syntaxErr.Error()),
			zap.Int64("offset", syntaxErr.Offset),
		)
	}
	return zap.Error(err)
}
