// Package ledger records which events each consumer has already processed.
//
// A claim is an atomic insert guarded by a unique (consumer name, event id)
// constraint in the backing store. Exactly one of any number of concurrent
// claims for the same pair succeeds; there is never a read before the write.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidClaim is returned when a claim lacks a consumer name or event id.
var ErrInvalidClaim = errors.New("invalid ledger claim")

// Ledger is the dedup store shared by every instance of a consumer.
type Ledger interface {
	// Claim stores a record for c and reports whether it was new.
	// A false result with a nil error means the event was already claimed.
	Claim(ctx context.Context, c Claim) (bool, error)
	// Count returns how many records exist for the pair (0 or 1).
	Count(ctx context.Context, consumerName, eventID string) (int64, error)
	// Lookup returns the stored record or persistence.ErrEntityNotFound.
	Lookup(ctx context.Context, consumerName, eventID string) (*Record, error)
}

// Claim identifies an event for one consumer.
type Claim struct {
	ConsumerName string
	EventID      string
	EventType    string
	AggregateID  string
	OccurredAt   *time.Time
}

// Record is a stored claim. Records are never updated or deleted.
type Record struct {
	ConsumerName string
	EventID      string
	EventType    string
	AggregateID  string
	OccurredAt   *time.Time
	ProcessedAt  time.Time
}

func (c Claim) validate() error {
	if strings.TrimSpace(c.ConsumerName) == "" {
		return fmt.Errorf("%w: consumer name is blank", ErrInvalidClaim)
	}
	if strings.TrimSpace(c.EventID) == "" {
		return fmt.Errorf("%w: event id is blank", ErrInvalidClaim)
	}
	return nil
}

func (c Claim) record(processedAt time.Time) Record {
	r := Record{
		ConsumerName: c.ConsumerName,
		EventID:      c.EventID,
		EventType:    c.EventType,
		AggregateID:  c.AggregateID,
		ProcessedAt:  processedAt.UTC(),
	}
	if c.OccurredAt != nil {
		t := c.OccurredAt.UTC()
		r.OccurredAt = &t
	}
	return r
}
