package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/relaydocs/document-events/pkg/testutil/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMongoStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	mongoContainer, err := container.StartMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongoContainer.Terminate(context.Background()) })

	db := mongoContainer.Database("relaydocs_test")

	runLedgerContract(t, func(t *testing.T) Ledger {
		require.NoError(t, db.Collection("consumed_events").Drop(ctx))
		store := newMongoStore(db.Collection("consumed_events"), 5*time.Second)
		require.NoError(t, store.EnsureIndexes(ctx))
		return store
	})

	t.Run("ensure indexes is idempotent", func(t *testing.T) {
		store := newMongoStore(db.Collection("consumed_events"), 5*time.Second)

		require.NoError(t, store.EnsureIndexes(ctx))
		require.NoError(t, store.EnsureIndexes(ctx))

		cursor, err := db.Collection("consumed_events").Indexes().List(ctx)
		require.NoError(t, err)
		var indexes []bson.M
		require.NoError(t, cursor.All(ctx, &indexes))

		var found bool
		for _, idx := range indexes {
			if idx["name"] == idxConsumerEvent {
				found = true
				assert.Equal(t, true, idx["unique"])
			}
		}
		assert.True(t, found)
	})
}
