package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TimeRepository handles time dimension operations.
type TimeRepository struct {
	q Querier
}

// Insert adds a time row. An existing start_time is left untouched.
func (r *TimeRepository) Insert(ctx context.Context, row *TimeRow) error {
	query := `
		INSERT INTO time (start_time, hour, day, week, month, year, weekday)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (start_time) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query,
		row.StartTime,
		row.Hour,
		row.Day,
		row.Week,
		row.Month,
		row.Year,
		row.Weekday,
	)
	if err != nil {
		return fmt.Errorf("inserting time: %w", err)
	}
	return nil
}

// Get retrieves the time row for a start time.
func (r *TimeRepository) Get(ctx context.Context, startTime time.Time) (*TimeRow, error) {
	query := `
		SELECT start_time, hour, day, week, month, year, weekday
		FROM time
		WHERE start_time = $1
	`
	var row TimeRow
	err := r.q.QueryRow(ctx, query, startTime).Scan(
		&row.StartTime,
		&row.Hour,
		&row.Day,
		&row.Week,
		&row.Month,
		&row.Year,
		&row.Weekday,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying time: %w", err)
	}
	return &row, nil
}
