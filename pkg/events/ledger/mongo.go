package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relaydocs/document-events/pkg/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const idxConsumerEvent = "consumed_events_consumer_event"

type mongoRecord struct {
	ConsumerName string     `bson:"consumerName"`
	EventID      string     `bson:"eventId"`
	EventType    string     `bson:"eventType"`
	AggregateID  string     `bson:"aggregateId"`
	OccurredAt   *time.Time `bson:"occurredAt,omitempty"`
	ProcessedAt  time.Time  `bson:"processedAt"`
}

type mongoStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

func newMongoStore(coll *mongo.Collection, timeout time.Duration) *mongoStore {
	return &mongoStore{coll: coll, timeout: timeout, now: time.Now}
}

// EnsureIndexes creates the unique (consumerName, eventId) index. Idempotent.
func (s *mongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "consumerName", Value: 1},
			{Key: "eventId", Value: 1},
		},
		Options: options.Index().
			SetName(idxConsumerEvent).
			SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", idxConsumerEvent, err)
	}
	return nil
}

func (s *mongoStore) Claim(ctx context.Context, c Claim) (bool, error) {
	if err := c.validate(); err != nil {
		return false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r := c.record(s.now())
	_, err := s.coll.InsertOne(ctx, mongoRecord(r))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim event %s for consumer %s: %w", c.EventID, c.ConsumerName, err)
	}
	return true, nil
}

func (s *mongoStore) Count(ctx context.Context, consumerName, eventID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, filterFor(consumerName, eventID))
	if err != nil {
		return 0, fmt.Errorf("failed to count consumed events: %w", err)
	}
	return n, nil
}

func (s *mongoStore) Lookup(ctx context.Context, consumerName, eventID string) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc mongoRecord
	err := s.coll.FindOne(ctx, filterFor(consumerName, eventID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("consumed event %s/%s: %w", consumerName, eventID, persistence.ErrEntityNotFound)
		}
		return nil, fmt.Errorf("failed to find consumed event: %w", err)
	}

	r := Record(doc)
	r.ProcessedAt = r.ProcessedAt.UTC()
	if r.OccurredAt != nil {
		t := r.OccurredAt.UTC()
		r.OccurredAt = &t
	}
	return &r, nil
}

func (s *mongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func filterFor(consumerName, eventID string) bson.D {
	return bson.D{
		{Key: "consumerName", Value: consumerName},
		{Key: "eventId", Value: eventID},
	}
}
