package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydocs/document-events/pkg/core/health"
	eventsconfig "github.com/relaydocs/document-events/pkg/events/config"
	"github.com/relaydocs/document-events/pkg/persistence/mongo"
	"github.com/relaydocs/document-events/pkg/persistence/postgres"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewModule provides the Ledger for backend. The matching persistence module
// (mongo.NewMongoModule or postgres.NewPostgresModule) must be installed for
// the database backends.
func NewModule(backend string) fx.Option {
	var provider any
	switch backend {
	case eventsconfig.BackendPostgres:
		provider = providePostgresLedger
	case eventsconfig.BackendMemory:
		provider = provideMemoryLedger
	default:
		provider = provideMongoLedger
	}

	return fx.Module("ledger",
		fx.Provide(provider),
	)
}

func provideMongoLedger(lc fx.Lifecycle, log *zap.Logger, m mongo.Mongo, conf eventsconfig.Config, readiness health.ComponentManager) Ledger {
	store := newMongoStore(m.Collection(conf.Ledger.Collection), m.QueryTimeout())
	registerSchemaHook(lc, log, readiness, "mongo", conf.Ledger.Collection, store.EnsureIndexes)
	return store
}

func providePostgresLedger(lc fx.Lifecycle, log *zap.Logger, pool *pgxpool.Pool, pgConf postgres.Config, conf eventsconfig.Config, readiness health.ComponentManager) Ledger {
	store := newPostgresStore(pool, conf.Ledger.Table, pgConf.QueryTimeout)
	registerSchemaHook(lc, log, readiness, "postgres", conf.Ledger.Table, store.EnsureSchema)
	return store
}

func provideMemoryLedger(log *zap.Logger) Ledger {
	log.Warn("using in-memory ledger: duplicates are only detected within this process")
	return NewMemory()
}

func registerSchemaHook(lc fx.Lifecycle, log *zap.Logger, readiness health.ComponentManager, backend, name string, ensure func(context.Context) error) {
	markReady := readiness.AddComponent("ledger")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ensure(ctx); err != nil {
				return fmt.Errorf("failed to prepare %s ledger: %w", backend, err)
			}
			log.Info("ledger ready", zap.String("backend", backend), zap.String("store", name))
			markReady()
			return nil
		},
	})
}
