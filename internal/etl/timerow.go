package etl

import (
	"time"

	"github.com/justestif/sparkify-etl/internal/db"
)

// StartTime converts an event timestamp in milliseconds to UTC.
func StartTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NewTimeRow derives the time dimension row of a millisecond timestamp:
// hour, day of month, ISO week, month, calendar year and ISO weekday
// (Monday is 1, Sunday is 7).
func NewTimeRow(ms int64) db.TimeRow {
	t := StartTime(ms)
	_, week := t.ISOWeek()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return db.TimeRow{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   weekday,
	}
}
