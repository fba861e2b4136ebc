package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// SQLSTATE object_in_use, raised when dropping a database with open sessions.
const sqlStateObjectInUse = "55006"

// CreateDatabase drops and recreates the database name through a connection
// to the landing database. Other sessions on the target are terminated
// first, so re-running against an existing database needs no manual step.
func CreateDatabase(ctx context.Context, landingConnString, name string, logger *zap.Logger) error {
	if name == "" {
		return errors.New("creating database: empty database name")
	}

	conn, err := pgx.Connect(ctx, landingConnString)
	if err != nil {
		return fmt.Errorf("connecting to landing database: %w", err)
	}
	defer conn.Close(ctx)

	terminate := `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
	if _, err := conn.Exec(ctx, terminate, name); err != nil {
		logger.Warn("could not terminate sessions", zap.String("database", name), ErrorField(err))
	}

	ident := quoteIdent(name)
	if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident); err != nil {
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != sqlStateObjectInUse {
			return fmt.Errorf("dropping database %s: %w", name, err)
		}
		logger.Warn("cannot drop database, trying to create it", zap.String("database", name), ErrorField(err))
	} else {
		logger.Info("dropped database", zap.String("database", name))
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident+" WITH ENCODING 'utf8' TEMPLATE template0"); err != nil {
		return fmt.Errorf("creating database %s: %w", name, err)
	}
	logger.Info("created database", zap.String("database", name))
	return nil
}

// ErrorField renders err as a log field, using the primary message and
// SQLSTATE of PostgreSQL errors.
func ErrorField(err error) zap.Field {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return zap.Dict("error",
			zap.String("message", pgErr.Message),
			zap.String("sqlstate", pgErr.Code),
			zap.String("detail", pgErr.Detail),
		)
	}
	return zap.Error(err)
}
