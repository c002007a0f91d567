package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const defaultPostgresImage = "postgres:16-alpine"

// PostgresContainer is a running PostgreSQL server with an open pool.
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	DSN       string
}

// StartPostgresContainer starts PostgreSQL with a "relaydocs" database.
func StartPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	pgContainer, err := postgres.Run(ctx, defaultPostgresImage,
		postgres.WithDatabase("relaydocs"),
		postgres.WithUsername("relaydocs"),
		postgres.WithPassword("relaydocs"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = testcontainers.TerminateContainer(pgContainer)
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresContainer{Container: pgContainer, Pool: pool, DSN: dsn}, nil
}

func (p *PostgresContainer) Terminate(context.Context) error {
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.Container == nil {
		return nil
	}
	if err := testcontainers.TerminateContainer(p.Container); err != nil {
		return fmt.Errorf("failed to terminate postgres container: %w", err)
	}
	return nil
}
