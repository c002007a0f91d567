package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydocs/document-events/pkg/persistence"
)

type postgresStore struct {
	pool    *pgxpool.Pool
	table   pgx.Identifier
	timeout time.Duration
	now     func() time.Time
}

func newPostgresStore(pool *pgxpool.Pool, table string, timeout time.Duration) *postgresStore {
	return &postgresStore{
		pool:    pool,
		table:   pgx.Identifier{table},
		timeout: timeout,
		now:     time.Now,
	}
}

// EnsureSchema creates the ledger table and its unique constraint. Idempotent.
func (s *postgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	table := s.table.Sanitize()
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id            BIGSERIAL PRIMARY KEY,
			consumer_name TEXT        NOT NULL,
			event_id      TEXT        NOT NULL,
			event_type    TEXT        NOT NULL,
			aggregate_id  TEXT        NOT NULL,
			occurred_at   TIMESTAMPTZ NULL,
			processed_at  TIMESTAMPTZ NOT NULL,
			CONSTRAINT %s UNIQUE (consumer_name, event_id)
		)`, table, pgx.Identifier{s.table[0] + "_consumer_event"}.Sanitize())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

func (s *postgresStore) Claim(ctx context.Context, c Claim) (bool, error) {
	if err := c.validate(); err != nil {
		return false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r := c.record(s.now())
	query := fmt.Sprintf(`
		INSERT INTO %s (consumer_name, event_id, event_type, aggregate_id, occurred_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (consumer_name, event_id) DO NOTHING`, s.table.Sanitize())

	tag, err := s.pool.Exec(ctx, query, r.ConsumerName, r.EventID, r.EventType, r.AggregateID, r.OccurredAt, r.ProcessedAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim event %s for consumer %s: %w", c.EventID, c.ConsumerName, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *postgresStore) Count(ctx context.Context, consumerName, eventID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE consumer_name = $1 AND event_id = $2`, s.table.Sanitize())

	var n int64
	if err := s.pool.QueryRow(ctx, query, consumerName, eventID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count consumed events: %w", err)
	}
	return n, nil
}

func (s *postgresStore) Lookup(ctx context.Context, consumerName, eventID string) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT consumer_name, event_id, event_type, aggregate_id, occurred_at, processed_at
		FROM %s
		WHERE consumer_name = $1 AND event_id = $2`, s.table.Sanitize())

	var r Record
	err := s.pool.QueryRow(ctx, query, consumerName, eventID).
		Scan(&r.ConsumerName, &r.EventID, &r.EventType, &r.AggregateID, &r.OccurredAt, &r.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("consumed event %s/%s: %w", consumerName, eventID, persistence.ErrEntityNotFound)
		}
		return nil, fmt.Errorf("failed to find consumed event: %w", err)
	}

	r.ProcessedAt = r.ProcessedAt.UTC()
	if r.OccurredAt != nil {
		t := r.OccurredAt.UTC()
		r.OccurredAt = &t
	}
	return &r, nil
}

func (s *postgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
