package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// NextSongPage is the page value of events that record a song being played.
const NextSongPage = "NextSong"

// maxLineSize bounds a single event line.
const maxLineSize = 1 << 20

var eventKeys = []string{
	"ts", "userId", "firstName", "lastName", "gender", "level",
	"song", "artist", "length", "sessionId", "location", "userAgent",
}

// Event is a NextSong entry of the activity log.
type Event struct {
	Timestamp  int64 // milliseconds since the epoch
	UserID     string
	FirstName  string
	LastName   string
	Gender     string
	Level      string
	SongTitle  string
	ArtistName string
	Length     float64
	SessionID  int
	Location   string
	UserAgent  string
}

// eventLine is the wire form of a log line. Ids arrive as strings or numbers.
type eventLine struct {
	Timestamp  int64      `json:"ts"`
	UserID     flexString `json:"userId"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Gender     string     `json:"gender"`
	Level      string     `json:"level"`
	SongTitle  string     `json:"song"`
	ArtistName string     `json:"artist"`
	Length     float64    `json:"length"`
	SessionID  flexInt    `json:"sessionId"`
	Location   string     `json:"location"`
	UserAgent  string     `json:"userAgent"`
}

// ParseEvent decodes one log line. ok is false, with a nil error, for
// events of any page other than NextSong.
func ParseEvent(line []byte) (Event, bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, false, fmt.Errorf("decoding event: %w", err)
	}

	pageRaw, found := raw["page"]
	if !found {
		return Event{}, false, fmt.Errorf("%w: page", ErrMissingKey)
	}
	var page string
	if err := json.Unmarshal(pageRaw, &page); err != nil {
		return Event{}, false, fmt.Errorf("decoding page: %w", err)
	}
	if page != NextSongPage {
		return Event{}, false, nil
	}

	if err := requireKeys(raw, eventKeys); err != nil {
		return Event{}, false, err
	}
	var wire eventLine
	if err := json.Unmarshal(line, &wire); err != nil {
		return Event{}, false, fmt.Errorf("decoding event: %w", err)
	}
	return Event{
		Timestamp:  wire.Timestamp,
		UserID:     string(wire.UserID),
		FirstName:  wire.FirstName,
		LastName:   wire.LastName,
		Gender:     wire.Gender,
		Level:      wire.Level,
		SongTitle:  wire.SongTitle,
		ArtistName: wire.ArtistName,
		Length:     wire.Length,
		SessionID:  int(wire.SessionID),
		Location:   wire.Location,
		UserAgent:  wire.UserAgent,
	}, true, nil
}

// ExtractEvents reads every log file line by line and collects NextSong
// events in order. Malformed lines and lines missing keys are logged and
// skipped; an unreadable file is skipped as a whole.
func ExtractEvents(fs afero.Fs, files []string, logger *zap.Logger) ([]Event, Stats) {
	stats := Stats{Source: "events", Files: len(files)}
	var events []Event

	for _, path := range files {
		if err := scanEvents(fs, path, logger, &stats, &events); err != nil {
			stats.Skipped++
			logger.Warn("skipping unreadable log file", zap.String("path", path), zap.Error(err))
		}
	}
	return events, stats
}

func scanEvents(fs afero.Fs, path string, logger *zap.Logger, stats *Stats, events *[]Event) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, ok, err := ParseEvent(line)
		if err != nil {
			stats.Skipped++
			logger.Warn("skipping log line",
				zap.String("path", path),
				zap.Int("line", lineNo),
				jsonErrorField(err),
			)
			continue
		}
		if !ok {
			continue
		}
		*events = append(*events, ev)
		stats.Records++
	}
	return scanner.Err()
}
