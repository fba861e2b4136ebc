// Package testhelpers starts the PostgreSQL server used by integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the server image integration tests run against.
const PostgresImage = "postgres:16-alpine"

const (
	user     = "student"
	password = "student"
	// landing is the database bootstraps connect to.
	landing = "studentdb"
)

// Postgres is a running PostgreSQL container shared by the whole test run.
type Postgres struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

var (
	sharedPostgres     *Postgres
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error
)

// GetPostgres returns the shared container, starting it on first use.
// Tests are skipped in short mode since they need Docker.
func GetPostgres(t *testing.T) *Postgres {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = startPostgres()
	})

	if sharedPostgresErr != nil {
		t.Fatalf("Failed to start postgres container: %v", sharedPostgresErr)
	}
	return sharedPostgres
}

func startPostgres() (*Postgres, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       landing,
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": password,
		},
		// The entrypoint restarts the server once after initdb.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &Postgres{Container: container, Host: host, Port: port.Port()}, nil
}

// LandingConnString returns a connection string for the landing database.
func (p *Postgres) LandingConnString() string {
	return p.ConnString(landing)
}

// ConnString returns a connection string for database name.
func (p *Postgres) ConnString(name string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, p.Host, p.Port, name)
}
