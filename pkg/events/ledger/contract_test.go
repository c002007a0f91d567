package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relaydocs/document-events/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runLedgerContract exercises behaviour every Ledger implementation shares.
func runLedgerContract(t *testing.T, newLedger func(t *testing.T) Ledger) {
	t.Run("claim is true once then false", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		c := Claim{ConsumerName: "document-service", EventID: "evt-1", EventType: "document.updated", AggregateID: "42"}

		first, err := l.Claim(ctx, c)
		require.NoError(t, err)
		second, err := l.Claim(ctx, c)
		require.NoError(t, err)
		third, err := l.Claim(ctx, c)
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
		assert.False(t, third)

		n, err := l.Count(ctx, "document-service", "evt-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("consumers are independent", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		a, err := l.Claim(ctx, Claim{ConsumerName: "document-service", EventID: "evt-2", EventType: "document.created", AggregateID: "1"})
		require.NoError(t, err)
		b, err := l.Claim(ctx, Claim{ConsumerName: "search-indexer", EventID: "evt-2", EventType: "document.created", AggregateID: "1"})
		require.NoError(t, err)

		assert.True(t, a)
		assert.True(t, b)
	})

	t.Run("concurrent claims yield exactly one winner", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		const workers = 16

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make(chan error, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := l.Claim(ctx, Claim{ConsumerName: "document-service", EventID: "evt-race", EventType: "document.shared", AggregateID: "7"})
				if err != nil {
					errs <- err
					return
				}
				if ok {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), wins.Load())

		n, err := l.Count(ctx, "document-service", "evt-race")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("record keeps claim fields", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		occurredAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		_, err := l.Claim(ctx, Claim{ConsumerName: "document-service", EventID: "evt-3", EventType: "permission.changed", AggregateID: "9", OccurredAt: &occurredAt})
		require.NoError(t, err)

		r, err := l.Lookup(ctx, "document-service", "evt-3")
		require.NoError(t, err)
		assert.Equal(t, "permission.changed", r.EventType)
		assert.Equal(t, "9", r.AggregateID)
		require.NotNil(t, r.OccurredAt)
		assert.True(t, occurredAt.Equal(*r.OccurredAt))
		assert.False(t, r.ProcessedAt.IsZero())
	})

	t.Run("unknown occurredAt stays unknown", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		_, err := l.Claim(ctx, Claim{ConsumerName: "document-service", EventID: "evt-4", EventType: "document.updated", AggregateID: "1"})
		require.NoError(t, err)

		r, err := l.Lookup(ctx, "document-service", "evt-4")
		require.NoError(t, err)
		assert.Nil(t, r.OccurredAt)
	})

	t.Run("lookup of unknown event", func(t *testing.T) {
		l := newLedger(t)

		_, err := l.Lookup(context.Background(), "document-service", "missing")

		assert.ErrorIs(t, err, persistence.ErrEntityNotFound)
	})

	t.Run("blank identifiers are rejected", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		for i, c := range []Claim{
			{ConsumerName: "", EventID: "evt"},
			{ConsumerName: "document-service", EventID: "  "},
		} {
			ok, err := l.Claim(ctx, c)
			assert.False(t, ok, fmt.Sprintf("claim %d", i))
			assert.ErrorIs(t, err, ErrInvalidClaim)
		}
	})
}
