package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Tables lists the warehouse tables, fact table first. Drops and creates
// run in this order.
var Tables = []string{"songplays", "users", "songs", "artists", "time"}

var dropTableStatements = map[string]string{
	"songplays": `DROP TABLE IF EXISTS songplays`,
	"users":     `DROP TABLE IF EXISTS users`,
	"songs":     `DROP TABLE IF EXISTS songs`,
	"artists":   `DROP TABLE IF EXISTS artists`,
	"time":      `DROP TABLE IF EXISTS time`,
}

var createTableStatements = map[string][]string{
	"songplays": {`
		CREATE TABLE IF NOT EXISTS songplays (
			songplay_id SERIAL PRIMARY KEY,
			start_time  TIMESTAMP NOT NULL,
			user_id     VARCHAR NOT NULL,
			level       VARCHAR NOT NULL,
			song_id     VARCHAR,
			artist_id   VARCHAR,
			session_id  INT NOT NULL,
			location    VARCHAR,
			user_agent  VARCHAR
		)`,
	},
	"users": {`
		CREATE TABLE IF NOT EXISTS users (
			user_id    VARCHAR PRIMARY KEY,
			first_name VARCHAR NOT NULL,
			last_name  VARCHAR NOT NULL,
			gender     CHAR(1) NOT NULL,
			level      VARCHAR NOT NULL
		)`,
	},
	"songs": {`
		CREATE TABLE IF NOT EXISTS songs (
			song_id   VARCHAR PRIMARY KEY,
			title     VARCHAR NOT NULL,
			artist_id VARCHAR NOT NULL,
			year      INT NOT NULL,
			duration  NUMERIC NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS songs_lookup_idx ON songs (title, duration)`,
	},
	"artists": {`
		CREATE TABLE IF NOT EXISTS artists (
			artist_id VARCHAR PRIMARY KEY,
			name      VARCHAR NOT NULL,
			location  VARCHAR,
			latitude  DOUBLE PRECISION,
			longitude DOUBLE PRECISION
		)`,
	},
	"time": {`
		CREATE TABLE IF NOT EXISTS time (
			start_time TIMESTAMP PRIMARY KEY,
			hour       INT NOT NULL,
			day        INT NOT NULL,
			week       INT NOT NULL,
			month      INT NOT NULL,
			year       INT NOT NULL,
			weekday    INT NOT NULL
		)`,
	},
}

// DropStatements returns the DROP TABLE statements in execution order.
func DropStatements() []string {
	out := make([]string, 0, len(Tables))
	for _, t := range Tables {
		out = append(out, dropTableStatements[t])
	}
	return out
}

// CreateStatements returns the CREATE statements in execution order.
func CreateStatements() []string {
	var out []string
	for _, t := range Tables {
		out = append(out, createTableStatements[t]...)
	}
	return out
}

// DropTables drops every warehouse table. Each statement commits on its own.
func DropTables(ctx context.Context, q Querier, logger *zap.Logger) error {
	logger.Debug("running drop table statements")
	return execAll(ctx, q, logger, DropStatements())
}

// CreateTables creates every warehouse table. Each statement commits on its own.
func CreateTables(ctx context.Context, q Querier, logger *zap.Logger) error {
	logger.Debug("running create table statements")
	return execAll(ctx, q, logger, CreateStatements())
}

// ResetTables drops and recreates every warehouse table.
func ResetTables(ctx context.Context, q Querier, logger *zap.Logger) error {
	if err := DropTables(ctx, q, logger); err != nil {
		return err
	}
	return CreateTables(ctx, q, logger)
}

func execAll(ctx context.Context, q Querier, logger *zap.Logger, statements []string) error {
	for _, stmt := range statements {
		logger.Debug("executing schema statement", zap.String("sql", stmt))
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return line
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
